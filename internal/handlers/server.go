package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// localServer is a short-lived HTTP listener serving a gin engine on a
// background goroutine until Stop.
type localServer struct {
	name string
	addr string
	srv  *http.Server
	ln   net.Listener
	done chan struct{}
}

func (s *localServer) start(engine *gin.Engine) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("%s: serve: %v", s.name, err)
		}
	}()
	logger.Infof("%s listening on %s", s.name, ln.Addr())
	return nil
}

// Stop shuts the listener down and waits for the serving goroutine to exit.
// Stopping a server that never started is a no-op.
func (s *localServer) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	logger.Infof("%s stopped", s.name)
	return err
}

// Addr is the bound address, useful when listening on port 0.
func (s *localServer) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// URL is the http root of the server.
func (s *localServer) URL() string {
	return "http://" + s.Addr()
}

func newEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	return engine
}

// renderPage executes the content template into a buffer, then the layout
// with the rendered content as PageContent.
func renderPage(c *gin.Context, templates *template.Template, pageData gin.H, contentTmpl string) {
	buf := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(buf, contentTmpl, pageData); err != nil {
		logger.Infof("Error executing content template %s: %v", contentTmpl, err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}
	pageData["PageContent"] = template.HTML(buf.String())

	out := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(out, "layout.html", pageData); err != nil {
		logger.Infof("Error executing layout template: %v", err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", out.Bytes())
}
