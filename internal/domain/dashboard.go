package domain

// Summary holds server-computed request counts.
type Summary struct {
	Total            int `json:"total" yaml:"total"`
	Pending          int `json:"pending" yaml:"pending"`
	Approved         int `json:"approved" yaml:"approved"`
	Rejected         int `json:"rejected" yaml:"rejected"`
	ChangesRequested int `json:"changes_requested" yaml:"changes_requested"`
}

// Dashboard is the read-only aggregate shown to auditors.
type Dashboard struct {
	Summary Summary           `json:"summary" yaml:"summary"`
	Recent  []ApprovalRequest `json:"recent,omitempty" yaml:"recent,omitempty"`
}
