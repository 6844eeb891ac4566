package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"aquacare/database"
)

// PushSender delivers a push notification to one device token. Sending is
// best-effort; callers must catch the error themselves.
type PushSender interface {
	Send(pushToken, title, body string, data map[string]string) error
}

// HTTPPushSender posts push messages to a single HTTP endpoint
type HTTPPushSender struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPPushSender creates a sender for the given push endpoint
func NewHTTPPushSender(endpoint string) *HTTPPushSender {
	return &HTTPPushSender{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Send implements PushSender
func (s *HTTPPushSender) Send(pushToken, title, body string, data map[string]string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"to":    pushToken,
		"title": title,
		"body":  body,
		"data":  data,
	})
	if err != nil {
		return err
	}

	resp, err := s.Client.Post(s.Endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Notifier dispatches notifications after a transaction has committed.
// It writes an in-app notification row and attempts a push; every failure
// is logged and swallowed, never surfaced to the caller.
type Notifier struct {
	DB     *gorm.DB
	Sender PushSender
}

// NewNotifier creates a dispatcher
func NewNotifier(db *gorm.DB, sender PushSender) *Notifier {
	return &Notifier{DB: db, Sender: sender}
}

// Notify sends one notification to a user, best-effort
func (n *Notifier) Notify(userID uint, title, message, notifType string, relatedID uint, relatedType string) {
	if n == nil {
		return
	}

	notification := database.Notification{
		UserID:      userID,
		Title:       title,
		Message:     message,
		Type:        notifType,
		RelatedID:   &relatedID,
		RelatedType: relatedType,
	}
	if err := n.DB.Create(&notification).Error; err != nil {
		log.Printf("Error creating notification for user %d: %v", userID, err)
	}

	if n.Sender == nil {
		return
	}

	var user database.User
	if err := n.DB.Select("push_token").First(&user, userID).Error; err != nil {
		log.Printf("Error loading push token for user %d: %v", userID, err)
		return
	}
	if user.PushToken == "" {
		return
	}

	data := map[string]string{
		"type":         notifType,
		"related_id":   fmt.Sprintf("%d", relatedID),
		"related_type": relatedType,
	}
	if err := n.Sender.Send(user.PushToken, title, message, data); err != nil {
		log.Printf("Error sending push notification to user %d: %v", userID, err)
	}
}
