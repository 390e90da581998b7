package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"prizedraw/internal/models"
)

// WinnerView is one winner card on the results page.
type WinnerView struct {
	ID         string
	Label      string
	ProfileURL string
	Delay      string // CSS animation delay
}

// ResultsServer serves the winners of one draw. Winners are fixed at construction.
type ResultsServer struct {
	localServer
	templates *template.Template
	winners   []WinnerView
	metrics   http.Handler
}

// NewResultsServer creates a results server for winners (id -> label).
// metricsHandler may be nil.
func NewResultsServer(addr string, templates *template.Template, winners map[string]string, metricsHandler http.Handler) *ResultsServer {
	return &ResultsServer{
		localServer: localServer{name: "results server", addr: addr},
		templates:   templates,
		winners:     WinnerViews(winners),
		metrics:     metricsHandler,
	}
}

// WinnerViews orders winners by label for display.
func WinnerViews(winners map[string]string) []WinnerView {
	views := make([]WinnerView, 0, len(winners))
	for id, label := range winners {
		views = append(views, WinnerView{ID: id, Label: label, ProfileURL: models.ProfileURL(id)})
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].Label == views[j].Label {
			return views[i].ID < views[j].ID
		}
		return views[i].Label < views[j].Label
	})
	for i := range views {
		views[i].Delay = fmt.Sprintf("%.1fs", float64(i)*0.5)
	}
	return views
}

// Start begins listening in the background.
func (s *ResultsServer) Start() error {
	return s.start(s.Router())
}

// Router builds the results routes.
func (s *ResultsServer) Router() *gin.Engine {
	engine := newEngine()
	engine.GET("/", s.ShowResults)
	if s.metrics != nil {
		engine.GET("/metrics", gin.WrapH(s.metrics))
	}
	return engine
}

// ShowResults renders the winners page.
func (s *ResultsServer) ShowResults(c *gin.Context) {
	renderPage(c, s.templates, gin.H{
		"title":   "Winners",
		"Winners": s.winners,
	}, "results.html")
}
