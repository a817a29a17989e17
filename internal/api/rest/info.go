package rest

import "net/http"

// ModuleInfo lists one device API module.
type ModuleInfo struct {
	URLPrefix   string   `json:"url_prefix"`
	Description string   `json:"description"`
	Endpoints   []string `json:"endpoints"`
}

var apiModules = map[string]ModuleInfo{
	"auth": {
		URLPrefix:   "/api/v1/auth",
		Description: "Login, sessions and account administration",
		Endpoints:   []string{"/login", "/logout", "/me", "/menu", "/sessions", "/users"},
	},
	"device": {
		URLPrefix:   "/api/v1/device",
		Description: "Device management and system information",
		Endpoints:   []string{"/system-resources", "/information", "/systemd-status"},
	},
	"monitoring": {
		URLPrefix:   "/api/v1/monitoring",
		Description: "SCC, battery and rectifier monitoring data",
		Endpoints:   []string{"/scc", "/battery", "/battery/active", "/rectifier"},
	},
	"logger": {
		URLPrefix:   "/api/v1/logger",
		Description: "Redis/SQLite data logs and SCC alarm logs",
		Endpoints:   []string{"/data/overview", "/data/redis", "/data/sqlite", "/scc-alarm", "/scc-alarm/history"},
	},
	"power": {
		URLPrefix:   "/api/v1/power",
		Description: "Reboot and shutdown",
		Endpoints:   []string{"/reboot", "/shutdown"},
	},
	"services": {
		URLPrefix:   "/api/v1/services",
		Description: "MQTT, SNMP and systemd services",
		Endpoints:   []string{"/mqtt", "/snmp", "/snmp-rectifier", "/systemd"},
	},
	"audit": {
		URLPrefix:   "/api/v1/audit",
		Description: "Authentication and access audit trail",
		Endpoints:   []string{"/", "/stream"},
	},
}

// Info handles GET /api/v1/info
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status_code": http.StatusOK,
		"status":      "success",
		"data": map[string]any{
			"api_version": "v1",
			"service":     "JSPro Powerdesk API",
			"site_name":   h.siteName,
			"modules":     apiModules,
			"authentication": map[string]string{
				"type":   "Bearer Token",
				"header": "Authorization",
				"format": "Bearer <token>",
			},
		},
	})
}
