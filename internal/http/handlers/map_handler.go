// README: Map handler: clustered job markers for the current zoom.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fixgo/internal/modules/cluster"
	"fixgo/internal/modules/job"
)

type MapHandler struct {
	jobs *job.Service
}

func NewMapHandler(jobs *job.Service) *MapHandler {
	return &MapHandler{jobs: jobs}
}

type singleView struct {
	Type   string  `json:"type"`
	JobID  string  `json:"job_id"`
	Title  string  `json:"title"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Urgent bool    `json:"urgent"`
	Budget int64   `json:"budget"`
}

type clusterView struct {
	Type      string       `json:"type"`
	Key       string       `json:"key"`
	Lat       float64      `json:"lat"`
	Lng       float64      `json:"lng"`
	Count     int          `json:"count"`
	Size      int          `json:"size"`
	Color     string       `json:"color"`
	HasUrgent bool         `json:"has_urgent"`
	Members   []singleView `json:"members"`
}

func (h *MapHandler) Jobs(c *gin.Context) {
	zoom, err := strconv.Atoi(c.DefaultQuery("zoom", "6"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid zoom")
		return
	}

	filter := job.Filter{
		City:       c.Query("city"),
		Category:   c.Query("category"),
		UrgentOnly: c.Query("urgent") == "true",
	}

	markers, err := h.jobs.MapMarkers(c.Request.Context(), filter, zoom)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]any, 0, len(markers))
	for _, m := range markers {
		switch m.Kind {
		case cluster.KindSingle:
			out = append(out, toSingleView(*m.Job))
		case cluster.KindCluster:
			members := make([]singleView, 0, len(m.Cluster.Members))
			for _, member := range m.Cluster.Members {
				members = append(members, toSingleView(member))
			}
			out = append(out, clusterView{
				Type:      "cluster",
				Key:       m.Cluster.Key,
				Lat:       m.Cluster.Centroid.Lat,
				Lng:       m.Cluster.Centroid.Lng,
				Count:     len(m.Cluster.Members),
				Size:      m.Cluster.BubbleSize(),
				Color:     m.Cluster.Color(),
				HasUrgent: m.Cluster.HasUrgent,
				Members:   members,
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"markers": out})
}

func toSingleView(m cluster.JobMarker) singleView {
	return singleView{
		Type:   "single",
		JobID:  string(m.ID),
		Title:  m.Title,
		Lat:    m.Point.Lat,
		Lng:    m.Point.Lng,
		Urgent: m.Urgent,
		Budget: m.Budget,
	}
}
