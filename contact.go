package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/logger"
)

// handleContact sends a contact form submission and answers with an HTML
// fragment for htmx to swap in.
func (s *server) handleContact(c *gin.Context) {
	msg := contact.Message{
		Name:    c.PostForm("fullName"),
		Email:   c.PostForm("email"),
		Message: c.PostForm("message"),
	}

	if err := msg.Validate(); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name, a valid email address and a message.",
		})
		return
	}

	if err := s.mailer.Send(msg); err != nil {
		entry := logger.Log.WithFields(logrus.Fields{"error": err})
		if errors.Is(err, contact.ErrNotConfigured) {
			entry.Warn("contact form used without SMTP credentials")
		} else {
			entry.Error("sending contact email")
		}
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	logger.Log.WithField("from", msg.Email).Info("contact email sent")
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}
