package rbac

import "strings"

// Menu is the sidebar visibility tree of a role.
type Menu struct {
	Dashboard  bool           `yaml:"dashboard" json:"dashboard"`
	Monitoring MonitoringMenu `yaml:"monitoring" json:"monitoring"`
	Logs       LogsMenu       `yaml:"logs" json:"logs"`
	Services   ServicesMenu   `yaml:"services" json:"services"`
	Settings   SettingsMenu   `yaml:"settings" json:"settings"`
	System     SystemMenu     `yaml:"system" json:"system"`
}

type MonitoringMenu struct {
	SCC       bool `yaml:"scc" json:"scc"`
	Battery   bool `yaml:"battery" json:"battery"`
	Rectifier bool `yaml:"rectifier" json:"rectifier"`
}

type LogsMenu struct {
	Datalog  bool `yaml:"datalog" json:"datalog"`
	SCCAlarm bool `yaml:"scc_alarm" json:"scc_alarm"`
	Reboot   bool `yaml:"reboot" json:"reboot"`
}

type ServicesMenu struct {
	MQTT          bool `yaml:"mqtt" json:"mqtt"`
	SNMP          bool `yaml:"snmp" json:"snmp"`
	SNMPRectifier bool `yaml:"snmp_rectifier" json:"snmp_rectifier"`
	Systemd       bool `yaml:"systemd" json:"systemd"`
}

type SettingsMenu struct {
	Device         bool `yaml:"device" json:"device"`
	IP             bool `yaml:"ip" json:"ip"`
	SCC            bool `yaml:"scc" json:"scc"`
	ConfigValueSCC bool `yaml:"config_value_scc" json:"config_value_scc"`
}

type SystemMenu struct {
	SiteInformation bool `yaml:"site_information" json:"site_information"`
	DiskStorage     bool `yaml:"disk_storage" json:"disk_storage"`
	Power           bool `yaml:"power" json:"power"`
}

// menuNode is either a leaf (children == nil) or a container.
type menuNode struct {
	value    bool
	children map[string]*menuNode
}

func leaf(v bool) *menuNode { return &menuNode{value: v} }

func container(children map[string]*menuNode) *menuNode {
	return &menuNode{children: children}
}

func (m Menu) tree() *menuNode {
	return container(map[string]*menuNode{
		"dashboard": leaf(m.Dashboard),
		"monitoring": container(map[string]*menuNode{
			"scc":       leaf(m.Monitoring.SCC),
			"battery":   leaf(m.Monitoring.Battery),
			"rectifier": leaf(m.Monitoring.Rectifier),
		}),
		"logs": container(map[string]*menuNode{
			"datalog":   leaf(m.Logs.Datalog),
			"scc_alarm": leaf(m.Logs.SCCAlarm),
			"reboot":    leaf(m.Logs.Reboot),
		}),
		"services": container(map[string]*menuNode{
			"mqtt":           leaf(m.Services.MQTT),
			"snmp":           leaf(m.Services.SNMP),
			"snmp_rectifier": leaf(m.Services.SNMPRectifier),
			"systemd":        leaf(m.Services.Systemd),
		}),
		"settings": container(map[string]*menuNode{
			"device":           leaf(m.Settings.Device),
			"ip":               leaf(m.Settings.IP),
			"scc":              leaf(m.Settings.SCC),
			"config_value_scc": leaf(m.Settings.ConfigValueSCC),
		}),
		"system": container(map[string]*menuNode{
			"site_information": leaf(m.System.SiteInformation),
			"disk_storage":     leaf(m.System.DiskStorage),
			"power":            leaf(m.System.Power),
		}),
	})
}

// lookup walks a dotted path. Missing keys, descending into a leaf, and paths that end on a
// container all resolve to false.
func (n *menuNode) lookup(dotPath string) bool {
	if dotPath == "" {
		return false
	}
	cur := n
	for _, key := range strings.Split(dotPath, ".") {
		if cur.children == nil {
			return false
		}
		next, ok := cur.children[key]
		if !ok {
			return false
		}
		cur = next
	}
	if cur.children != nil {
		return false
	}
	return cur.value
}
