package metrics

// PingsCategory is the reserved category name pings are filed under in
// the merged object tree. Metric categories may not use it.
const PingsCategory = "pings"

// ReservedPingNames are ping names users may not define themselves.
var ReservedPingNames = []string{"all_pings"}

// Ping is a user-defined ping and its submission metadata.
type Ping struct {
	Name               string   `yaml:"-"`
	Description        string   `yaml:"description"`
	Bugs               BugList  `yaml:"bugs"`
	DataReviews        []string `yaml:"data_reviews"`
	NotificationEmails []string `yaml:"notification_emails"`
	IncludeClientID    bool     `yaml:"include_client_id"`
}

func (p *Ping) ObjectType() string { return "ping" }

func (p *Ping) ObjectName() string { return p.Name }

func (p *Ping) ConstructorArgs() map[string]any {
	return map[string]any{
		"name":              p.Name,
		"include_client_id": p.IncludeClientID,
	}
}
