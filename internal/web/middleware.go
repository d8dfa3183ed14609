package web

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sibeo/internal/auth"
	"sibeo/internal/common"
	"sibeo/internal/models"
)

const (
	ctxRequestID = "request_id"
	ctxFlash     = "flash"
	ctxUser      = "user"
)

// requestID tags every request with a correlation id
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(common.RequestIDHeader)
		if id == "" {
			id = common.NewRequestID()
		}
		c.Set(ctxRequestID, id)
		c.Header(common.RequestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs each request once it completes
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(ctxRequestID)),
		}
		if len(c.Errors) > 0 {
			logger.Error("Request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		logger.Info("Request", fields...)
	}
}

// flashes moves a pending popup from its cookie into the request context
func (s *Server) flashes() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(flashCookie)
		if err == nil && token != "" {
			c.SetCookie(flashCookie, "", -1, "/", "", false, true)
			popup, err := s.flash.Parse(token)
			if err != nil {
				s.logger.Debug("Dropping invalid flash", zap.Error(err))
			} else {
				c.Set(ctxFlash, popup)
			}
		}
		c.Next()
	}
}

// sameOrigin rejects state-changing requests a browser reports as coming
// from another site. Requests without browser headers pass.
func (s *Server) sameOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if !isSameOrigin(c.Request) {
			s.logger.Warn("Rejected cross-site request",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("origin", c.GetHeader("Origin")),
				zap.String("sec_fetch_site", c.GetHeader("Sec-Fetch-Site")),
			)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func isSameOrigin(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "", "same-origin", "none":
	default:
		return false
	}

	source := r.Header.Get("Origin")
	if source == "" {
		source = r.Header.Get("Referer")
	}
	if source == "" {
		return true
	}
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Host == r.Host
}

// requireUser redirects anonymous visitors to the login page and pins the
// signed-in user for the rest of the request
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := s.session.User()
		if user == nil {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Set(ctxUser, user)
		c.Next()
	}
}

// requireInstructor sends signed-in non-instructors back to the dashboard
func (s *Server) requireInstructor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsInstructor() {
			c.Redirect(http.StatusSeeOther, "/dashboard")
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentUser returns the user pinned by requireUser, or nil
func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxUser); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// setFlash stores a popup to show after the next redirect
func (s *Server) setFlash(c *gin.Context, popup auth.Popup) {
	token, err := s.flash.Sign(popup)
	if err != nil {
		s.logger.Error("Failed to sign flash", zap.Error(err))
		return
	}
	c.SetCookie(flashCookie, token, int(flashTTL.Seconds()), "/", "", false, true)
}
