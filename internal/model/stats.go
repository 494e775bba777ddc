package model

// PortalStats summarizes portal adoption for one organization, backing the
// staff dashboard.
type PortalStats struct {
	TotalUsers       int `db:"total_users" json:"totalUsers"`
	ActiveUsers      int `db:"active_users" json:"activeUsers"`
	UsersWhoLoggedIn int `db:"users_who_logged_in" json:"usersWhoLoggedIn"`
	ActiveLast30Days int `db:"active_last_30_days" json:"activeLast30Days"`
	ActiveLast7Days  int `db:"active_last_7_days" json:"activeLast7Days"`
}
