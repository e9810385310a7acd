package extract

import (
	"sort"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

// portService describes how an exposed port is interpreted: the service label
// used for correlation, the signal category, a default severity, and an
// optional adversary technique id. Ports without a technique mapping still
// yield an indicator and a signal, just no technique evidence.
type portService struct {
	Service   string
	Category  string
	Severity  schemas.Severity
	Technique string
}

// portTable is the fixed port -> service/tactic mapping. Severities here are
// defaults for a bare exposure with no vulnerability attached.
var portTable = map[int]portService{
	21:    {Service: "ftp", Category: "file-transfer", Severity: schemas.SeverityMedium, Technique: "T1071.002"},
	22:    {Service: "ssh", Category: "remote-access", Severity: schemas.SeverityMedium, Technique: "T1021.004"},
	23:    {Service: "telnet", Category: "remote-access", Severity: schemas.SeverityHigh, Technique: "T1021"},
	25:    {Service: "smtp", Category: "mail", Severity: schemas.SeverityInfo},
	80:    {Service: "http", Category: "web", Severity: schemas.SeverityInfo},
	443:   {Service: "https", Category: "web", Severity: schemas.SeverityInfo},
	445:   {Service: "smb", Category: "file-sharing", Severity: schemas.SeverityHigh, Technique: "T1021.002"},
	1433:  {Service: "mssql", Category: "exposed-data-store", Severity: schemas.SeverityHigh},
	3306:  {Service: "mysql", Category: "exposed-data-store", Severity: schemas.SeverityHigh},
	3389:  {Service: "rdp", Category: "remote-desktop", Severity: schemas.SeverityHigh, Technique: "T1021.001"},
	5432:  {Service: "postgres", Category: "exposed-data-store", Severity: schemas.SeverityHigh},
	5900:  {Service: "vnc", Category: "remote-desktop", Severity: schemas.SeverityHigh, Technique: "T1021.005"},
	6379:  {Service: "redis", Category: "exposed-data-store", Severity: schemas.SeverityHigh},
	8080:  {Service: "http-alt", Category: "web", Severity: schemas.SeverityLow},
	9200:  {Service: "elasticsearch", Category: "exposed-data-store", Severity: schemas.SeverityHigh},
	27017: {Service: "mongodb", Category: "exposed-data-store", Severity: schemas.SeverityHigh},
}

// keywordLexicon maps normalized topic keywords found in social posts to the
// category and default severity of the resulting signal. Product keywords
// mirror the service labels in portTable so social chatter can correlate with
// infrastructure exposure of the same service.
var keywordLexicon = map[string]struct {
	Category string
	Severity schemas.Severity
}{
	// Service/product topics.
	"ssh":           {Category: "remote-access", Severity: schemas.SeverityInfo},
	"rdp":           {Category: "remote-desktop", Severity: schemas.SeverityLow},
	"smb":           {Category: "file-sharing", Severity: schemas.SeverityLow},
	"vnc":           {Category: "remote-desktop", Severity: schemas.SeverityLow},
	"telnet":        {Category: "remote-access", Severity: schemas.SeverityLow},
	"redis":         {Category: "exposed-data-store", Severity: schemas.SeverityLow},
	"elasticsearch": {Category: "exposed-data-store", Severity: schemas.SeverityLow},
	"mongodb":       {Category: "exposed-data-store", Severity: schemas.SeverityLow},
	"postgres":      {Category: "exposed-data-store", Severity: schemas.SeverityLow},
	"mysql":         {Category: "exposed-data-store", Severity: schemas.SeverityLow},
	// Threat topics.
	"exploit":    {Category: "threat-discussion", Severity: schemas.SeverityMedium},
	"zero-day":   {Category: "threat-discussion", Severity: schemas.SeverityHigh},
	"ransomware": {Category: "threat-discussion", Severity: schemas.SeverityHigh},
	"botnet":     {Category: "threat-discussion", Severity: schemas.SeverityMedium},
	"breach":     {Category: "threat-discussion", Severity: schemas.SeverityMedium},
	"leak":       {Category: "threat-discussion", Severity: schemas.SeverityMedium},
	"phishing":   {Category: "threat-discussion", Severity: schemas.SeverityLow},
}

// keywordOrder fixes the lexicon scan order. Map iteration is randomized, and
// extraction output order must be stable for identical payloads.
var keywordOrder = func() []string {
	keys := make([]string, 0, len(keywordLexicon))
	for k := range keywordLexicon {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()
