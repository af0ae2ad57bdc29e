// admin.go - privacy-conscious admin area
package main

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/goroutine"
	"github.com/Zachkp/folio/internal/logger"
	"github.com/Zachkp/folio/internal/store"
)

const adminCookie = "admin_token"

// ErrInvalidCredentials is returned for a wrong username or password.
var ErrInvalidCredentials = errors.New("admin: invalid credentials")

// Analytics is what the admin area reads and cleans up.
type Analytics interface {
	Stats(ctx context.Context) (*store.Stats, error)
	CleanupVisitors(ctx context.Context, retention time.Duration) (int64, error)
	HashIP(ip string) string
}

// adminAuth checks credentials and issues signed session tokens.
type adminAuth struct {
	username string
	hash     []byte
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// newAdminAuth prepares the admin login. A plain password from the config is
// hashed once at startup so only the bcrypt hash is kept in memory.
func newAdminAuth(cfg *config.Config) (*adminAuth, error) {
	hash := []byte(cfg.AdminPasswordHash)
	if len(hash) == 0 {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Wrap(err, "admin: hashing password")
		}
	}
	if cfg.AdminPassword == config.Default().AdminPassword && !cfg.IsProduction() {
		logger.Log.Warn("using default admin password, set ADMIN_PASSWORD")
	}

	return &adminAuth{
		username: cfg.AdminUsername,
		hash:     hash,
		secret:   []byte(cfg.AdminSecret),
		ttl:      cfg.AdminTokenTTL,
		now:      time.Now,
	}, nil
}

// Login checks the credentials and returns a signed token.
func (a *adminAuth) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !userOK || passErr != nil {
		return "", ErrInvalidCredentials
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   a.username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "admin: signing token")
	}
	return token, nil
}

// Verify reports whether token is a valid, unexpired admin token.
func (a *adminAuth) Verify(token string) error {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject != a.username {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

// Middleware to check admin authentication
func (a *adminAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || a.Verify(token) != nil {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupAdminRoutes mounts the privacy page and the admin area.
func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title":     "Privacy Policy",
			"retention": retentionText(s.cfg.VisitorRetention),
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", rateLimit(s.cfg.RateLimitLimit, s.cfg.RateLimitPeriod), func(c *gin.Context) {
		visitor := s.analytics.HashIP(c.ClientIP())
		token, err := s.admin.Login(c.PostForm("username"), c.PostForm("password"))
		if err != nil {
			logger.Log.WithField("visitor", visitor).Warn("failed admin login attempt")
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(adminCookie, token, int(s.admin.ttl.Seconds()), "/admin", "", s.cfg.IsProduction(), true)
		logger.Log.WithField("visitor", visitor).Info("admin login successful")
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", s.cfg.IsProduction(), true)
		logger.Log.WithField("visitor", s.analytics.HashIP(c.ClientIP())).Info("admin logout")
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(s.admin.middleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.analytics.Stats(c.Request.Context())
		if err != nil {
			logger.Log.WithError(err).Error("loading admin stats")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats": stats,
		})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := s.analytics.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.POST("/privacy/delete-visitor-data", func(c *gin.Context) {
		retention := s.cfg.VisitorRetention
		goroutine.SafeGoWithContext(context.WithoutCancel(c.Request.Context()), func(ctx context.Context) {
			s.cleanupVisitors(ctx, retention)
		})
		c.JSON(http.StatusAccepted, gin.H{"message": "Privacy cleanup initiated"})
	})

	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.analytics.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		logger.Log.WithField("visitor", s.analytics.HashIP(c.ClientIP())).Info("admin stats exported")
		c.JSON(http.StatusOK, stats)
	})
}

// cleanupVisitors deletes visitor records older than retention.
func (s *server) cleanupVisitors(ctx context.Context, retention time.Duration) {
	n, err := s.analytics.CleanupVisitors(ctx, retention)
	if err != nil {
		logger.Log.WithError(err).Error("cleaning up visitor data")
		return
	}
	if n > 0 {
		logger.Log.WithFields(logrus.Fields{
			"removed":   n,
			"retention": retention.String(),
		}).Info("privacy cleanup removed old visitor records")
	}
}

func retentionText(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return strconv.Itoa(days) + " days"
}
