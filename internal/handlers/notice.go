package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NoticeCookie carries a one-shot notice across the post-submit redirect
const NoticeCookie = "replacement_notice"

// Notice kinds
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is a customer-facing message shown once on the next page
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func setNotice(c *gin.Context, kind, message string) {
	data, err := json.Marshal(Notice{Kind: kind, Message: message})
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(NoticeCookie, base64.RawURLEncoding.EncodeToString(data), 300, "/", "", false, true)
}

// takeNotice reads and clears the flashed notice
func takeNotice(c *gin.Context) *Notice {
	raw, err := c.Cookie(NoticeCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(NoticeCookie, "", -1, "/", "", false, true)

	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var notice Notice
	if err := json.Unmarshal(data, &notice); err != nil || notice.Message == "" {
		return nil
	}
	return &notice
}
