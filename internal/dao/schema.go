package dao

// registrationRow is one row of the registrations relation.
type registrationRow struct {
	IdentityNamespace string  `gorm:"column:identity_namespace;primaryKey;size:191"`
	IdentityName      string  `gorm:"column:identity_name;primaryKey;size:191"`
	EndpointKind      string  `gorm:"column:endpoint_kind;size:32;not null"`
	ActivationAction  *string `gorm:"column:activation_action;size:255"`
	Payload           []byte  `gorm:"column:payload"`
}

func (registrationRow) TableName() string { return "registrations" }

// notifierLinkRow associates an identity with one event key; "" is the wildcard.
type notifierLinkRow struct {
	ID                uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	IdentityNamespace string `gorm:"column:identity_namespace;size:191;not null;index:idx_notifier_links_identity,priority:1"`
	IdentityName      string `gorm:"column:identity_name;size:191;not null;index:idx_notifier_links_identity,priority:2"`
	EventKey          string `gorm:"column:event_key;size:191;not null"`
}

func (notifierLinkRow) TableName() string { return "notifier_links" }
