package handlers

import (
	"EcoWatch/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UriDoc 接口说明
type UriDoc struct {
	Group        string `json:"group"`
	Path         string `json:"path"`
	Method       string `json:"method"`
	AuthRequired bool   `json:"authRequired"`
	Signed       bool   `json:"signed,omitempty"`
	Desc         string `json:"desc"`
}

func (h *Handlers) GetDocs() []UriDoc {
	p := h.opts.APIPrefix
	return []UriDoc{
		{Group: "User Authorization", Path: p + "/auth/register", Method: http.MethodPost, Desc: "Register with username, email, password and city"},
		{Group: "User Authorization", Path: p + "/auth/login", Method: http.MethodPost, Desc: "Login with username and password"},
		{Group: "User Authorization", Path: p + "/auth/logout", Method: http.MethodGet, AuthRequired: true, Desc: "Clear the session"},
		{Group: "User Authorization", Path: p + "/auth/info", Method: http.MethodGet, AuthRequired: true, Desc: "Current user"},

		{Group: "Environment", Path: p + "/home", Method: http.MethodGet, Desc: "Recent tips, user count, covered cities and today's reports"},
		{Group: "Environment", Path: p + "/dashboard", Method: http.MethodGet, AuthRequired: true, Desc: "Weather, air quality, water levels, reports, tips, alerts and forecast for the user's city"},
		{Group: "Environment", Path: p + "/dashboard-data", Method: http.MethodGet, AuthRequired: true, Desc: "Current weather and air quality summary"},
		{Group: "Environment", Path: p + "/weather", Method: http.MethodGet, AuthRequired: true, Desc: "Current weather, last 24 readings and 7-day forecast"},
		{Group: "Environment", Path: p + "/air-quality", Method: http.MethodGet, AuthRequired: true, Desc: "Current air quality, last 24 readings and the AQI table"},
		{Group: "Environment", Path: p + "/water-levels", Method: http.MethodGet, AuthRequired: true, Desc: "Refresh and list the stations of the user's city"},
		{Group: "Environment", Path: p + "/water-levels/:id", Method: http.MethodPut, Signed: true, Desc: "Update a station; status is recomputed from the new values"},
		{Group: "Environment", Path: p + "/eco-tips", Method: http.MethodGet, AuthRequired: true, Desc: "Active tips, `?category=all` by default"},
		{Group: "Environment", Path: p + "/eco-tips/search", Method: http.MethodGet, AuthRequired: true, Desc: "Full-text search over active tips, `?q=`"},
		{Group: "Environment", Path: p + "/community/reports", Method: http.MethodGet, AuthRequired: true, Desc: "Reports from the last 7 days in the user's city"},

		{Group: "Alerts", Path: p + "/alerts", Method: http.MethodGet, AuthRequired: true, Desc: "Unread alerts"},
		{Group: "Alerts", Path: p + "/alerts/:id/read", Method: http.MethodPost, AuthRequired: true, Desc: "Mark an alert as read"},

		{Group: "Profile", Path: p + "/profile", Method: http.MethodGet, AuthRequired: true, Desc: "User and profile"},
		{Group: "Profile", Path: p + "/profile", Method: http.MethodPut, AuthRequired: true, Desc: "Update city, units, notifications and profile fields"},
		{Group: "Profile", Path: p + "/profile/avatar", Method: http.MethodPost, AuthRequired: true, Desc: "Upload a profile picture (multipart field `avatar`)"},

		{Group: "System", Path: p + "/system/health", Method: http.MethodGet, Desc: "Database and host status"},
		{Group: "System", Path: p + "/system/rate-limiter/config", Method: http.MethodPost, Signed: true, Desc: "Replace the rate limiter config"},
	}
}

func (h *Handlers) handleDocs(c *gin.Context) {
	response.Success(c, "success", h.GetDocs())
}
