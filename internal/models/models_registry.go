package models

// All lists every gorm model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Sport{},
		&User{},
		&UserToken{},
		&Certificate{},
		&CertificateLevel{},
		&UserCertificate{},
		&AdminUser{},
		&Party{},
		&PartyParticipant{},
		&PartyComment{},
		&PartyLike{},
		&Notification{},
		&NotificationRead{},
		&Tag{},
		&Post{},
		&PostImage{},
		&PostLike{},
		&PostComment{},
		&PostCommentLike{},
		&Feedback{},
	}
}
