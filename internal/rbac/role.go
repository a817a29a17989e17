// Package rbac holds the static role tables of the dashboard: which pages, actions and API
// endpoints each role may use, and which menu entries it sees.
package rbac

import (
	"fmt"
	"strings"
)

// Role is one of the fixed dashboard roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeknisi Role = "teknisi"
	RoleApt     Role = "apt"
)

// AllRoles lists the roles in descending privilege order.
var AllRoles = []Role{RoleAdmin, RoleTeknisi, RoleApt}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeknisi, RoleApt:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole normalizes s and returns the matching role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Page ids.
const (
	PageDashboard            = "dashboard"
	PageSCCMonitoring        = "scc_monitoring"
	PageBatteryMonitoring    = "battery_monitoring"
	PageRectifierMonitoring  = "rectifier_monitoring"
	PageDatalog              = "datalog"
	PageSCCAlarmLog          = "scc_alarm_log"
	PageRebootLog            = "reboot_log"
	PageMQTTService          = "mqtt_service"
	PageSNMPService          = "snmp_service"
	PageSNMPRectifierService = "snmp_rectifier_service"
	PageSystemdService       = "systemd_service"
	PageSettingDevice        = "setting_device"
	PageSettingIP            = "setting_ip"
	PageSettingSCC           = "setting_scc"
	PageConfigValueSCC       = "config_value_scc"
	PageSiteInformation      = "site_information"
	PageDiskStorage          = "disk_storage"
	PagePowerManagement      = "power_management"
)

// Action ids.
const (
	ActionViewTelemetry      = "view_telemetry"
	ActionReboot             = "reboot"
	ActionShutdown           = "shutdown"
	ActionRestartService     = "restart_service"
	ActionChangeIP           = "change_ip"
	ActionUpdateDeviceConfig = "update_device_config"
	ActionUpdateSCCConfig    = "update_scc_config"
	ActionDeleteLogs         = "delete_logs"
	ActionExportLogs         = "export_logs"
	ActionSNMPQuery          = "snmp_query"
	ActionManageSessions     = "manage_sessions"
	ActionManageUsers        = "manage_users"
	ActionViewAudit          = "view_audit"
)

var knownPages = map[string]struct{}{
	PageDashboard: {}, PageSCCMonitoring: {}, PageBatteryMonitoring: {}, PageRectifierMonitoring: {},
	PageDatalog: {}, PageSCCAlarmLog: {}, PageRebootLog: {}, PageMQTTService: {}, PageSNMPService: {},
	PageSNMPRectifierService: {}, PageSystemdService: {}, PageSettingDevice: {}, PageSettingIP: {},
	PageSettingSCC: {}, PageConfigValueSCC: {}, PageSiteInformation: {}, PageDiskStorage: {},
	PagePowerManagement: {},
}

var knownActions = map[string]struct{}{
	ActionViewTelemetry: {}, ActionReboot: {}, ActionShutdown: {}, ActionRestartService: {},
	ActionChangeIP: {}, ActionUpdateDeviceConfig: {}, ActionUpdateSCCConfig: {}, ActionDeleteLogs: {},
	ActionExportLogs: {}, ActionSNMPQuery: {}, ActionManageSessions: {}, ActionManageUsers: {},
	ActionViewAudit: {},
}
