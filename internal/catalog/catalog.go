// Package catalog provides the static registry of defender commands: what
// each one is called, what it takes, and what it costs.
package catalog

import "sync"

// Group classifies commands for display.
type Group string

const (
	GroupNetwork        Group = "network"
	GroupEndpoint       Group = "endpoint"
	GroupIAM            Group = "iam"
	GroupDataProtection Group = "data_protection"
	GroupForensics      Group = "forensics"
	GroupInvestigation  Group = "investigation"
)

// Command names.
const (
	IsolateNetwork        = "isolate_network"
	UpdateFirewall        = "update_firewall"
	BlockIP               = "block_ip"
	IsolateHost           = "isolate_host"
	ScanForMalware        = "scan_for_malware"
	TerminateProcess      = "terminate_process"
	DisableAccount        = "disable_account"
	EnforceMFA            = "enforce_mfa"
	ResetPasswords        = "reset_passwords"
	SecureS3Bucket        = "secure_s3_bucket"
	EnableDLP             = "enable_dlp"
	CaptureMemoryDump     = "capture_memory_dump"
	PreserveLogs          = "preserve_logs"
	CaptureNetworkTraffic = "capture_network_traffic"
	QueryLogs             = "query_logs"
	CheckIAMActivity      = "check_iam_activity"
	AnalyzeNetworkTraffic = "analyze_network_traffic"
)

// Definition describes one command. Params are declared for display only;
// they are never validated.
type Definition struct {
	Name        string   `json:"name"`
	Group       Group    `json:"group"`
	Description string   `json:"description"`
	Params      []string `json:"params"`
	// Cost is the business impact of running the command.
	Cost float64 `json:"cost"`
	// Time is the simulated minutes the command takes.
	Time float64 `json:"time"`
}

// Catalog is a read-only set of command definitions.
type Catalog struct {
	ordered []Definition
	byName  map[string]Definition
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	return New(defaultDefinitions())
})

// Default returns the process-wide command catalog.
func Default() *Catalog {
	return defaultCatalog()
}

// New builds a catalog from defs. The first definition of a name wins.
func New(defs []Definition) *Catalog {
	c := &Catalog{byName: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if _, dup := c.byName[d.Name]; dup {
			continue
		}
		c.ordered = append(c.ordered, d)
		c.byName[d.Name] = d
	}
	return c
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// List returns all definitions in catalog order. The slice is a copy.
func (c *Catalog) List() []Definition {
	out := make([]Definition, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of commands.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

func defaultDefinitions() []Definition {
	return []Definition{
		{Name: IsolateNetwork, Group: GroupNetwork, Description: "Isolate a network segment", Params: []string{"segment"}, Cost: 15.0, Time: 2.0},
		{Name: UpdateFirewall, Group: GroupNetwork, Description: "Update firewall rules", Params: []string{"rule"}, Cost: 5.0, Time: 1.5},
		{Name: BlockIP, Group: GroupNetwork, Description: "Block an IP address", Params: []string{"ip"}, Cost: 2.0, Time: 0.5},

		{Name: IsolateHost, Group: GroupEndpoint, Description: "Isolate a compromised host", Params: []string{"hostname"}, Cost: 10.0, Time: 1.0},
		{Name: ScanForMalware, Group: GroupEndpoint, Description: "Scan system for malware", Params: []string{"target"}, Cost: 3.0, Time: 5.0},
		{Name: TerminateProcess, Group: GroupEndpoint, Description: "Terminate a suspicious process", Params: []string{"process_id"}, Cost: 1.0, Time: 0.3},

		{Name: DisableAccount, Group: GroupIAM, Description: "Disable a user account", Params: []string{"username"}, Cost: 5.0, Time: 0.5},
		{Name: EnforceMFA, Group: GroupIAM, Description: "Enforce MFA across organization", Params: []string{}, Cost: 8.0, Time: 3.0},
		{Name: ResetPasswords, Group: GroupIAM, Description: "Force password reset for affected accounts", Params: []string{"scope"}, Cost: 12.0, Time: 2.0},

		{Name: SecureS3Bucket, Group: GroupDataProtection, Description: "Secure S3 bucket with strict policies", Params: []string{"bucket_name"}, Cost: 4.0, Time: 1.0},
		{Name: EnableDLP, Group: GroupDataProtection, Description: "Enable Data Loss Prevention", Params: []string{}, Cost: 6.0, Time: 2.5},

		{Name: CaptureMemoryDump, Group: GroupForensics, Description: "Capture memory dump from host", Params: []string{"hostname"}, Cost: 7.0, Time: 4.0},
		{Name: PreserveLogs, Group: GroupForensics, Description: "Preserve logs for forensic analysis", Params: []string{"source"}, Cost: 3.0, Time: 1.5},
		{Name: CaptureNetworkTraffic, Group: GroupForensics, Description: "Capture network traffic for analysis", Params: []string{}, Cost: 5.0, Time: 3.0},

		{Name: QueryLogs, Group: GroupInvestigation, Description: "Query logs from SIEM", Params: []string{"query"}, Cost: 1.0, Time: 0.5},
		{Name: CheckIAMActivity, Group: GroupInvestigation, Description: "Check IAM activity logs", Params: []string{"username"}, Cost: 1.0, Time: 0.5},
		{Name: AnalyzeNetworkTraffic, Group: GroupInvestigation, Description: "Analyze network traffic patterns", Params: []string{}, Cost: 2.0, Time: 2.0},
	}
}
