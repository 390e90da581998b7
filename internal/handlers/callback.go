package handlers

import (
	"html/template"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"prizedraw/internal/models"
)

// RedirectReceiver captures the consent-flow redirect on a local endpoint.
// The first request on "/" is authoritative and is sent once on the handoff
// channel given at construction; later requests only get the page.
type RedirectReceiver struct {
	localServer
	templates *template.Template
	handoff   chan<- models.Callback
	once      sync.Once
}

// NewRedirectReceiver creates a receiver listening on addr.
func NewRedirectReceiver(addr string, templates *template.Template, handoff chan<- models.Callback) *RedirectReceiver {
	return &RedirectReceiver{
		localServer: localServer{name: "redirect receiver", addr: addr},
		templates:   templates,
		handoff:     handoff,
	}
}

// Start begins listening in the background.
func (r *RedirectReceiver) Start() error {
	return r.start(r.Router())
}

// Router builds the receiver's routes.
func (r *RedirectReceiver) Router() *gin.Engine {
	engine := newEngine()
	engine.GET("/", r.HandleCallback)
	return engine
}

type callbackQuery struct {
	Code             string `form:"code"`
	State            string `form:"state"`
	Error            string `form:"error"`
	ErrorDescription string `form:"error_description"`
}

// HandleCallback records the redirect and answers with a static acknowledgment.
func (r *RedirectReceiver) HandleCallback(c *gin.Context) {
	var q callbackQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		logger.Warningf("redirect receiver: bad query: %v", err)
	}
	r.once.Do(func() {
		cb := models.Callback{Code: q.Code, State: q.State, Error: q.Error, ErrorDescription: q.ErrorDescription}
		select {
		case r.handoff <- cb:
		default:
			logger.Warningf("redirect receiver: nobody waiting for the callback")
		}
	})
	renderPage(c, r.templates, gin.H{"title": "Authorization"}, "callback.html")
}
