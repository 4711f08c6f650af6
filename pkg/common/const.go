package common

const (
	KEY_CREDENTIAL_QUERY = "credential_query:%d"
)

const (
	DB_DRIVER_POSTGRES = "postgres"
	DB_DRIVER_SQLITE   = "sqlite"
	DB_DRIVER_MYSQL    = "mysql"
)

const (
	KEY_LOG_HOOK_SEND_ALERT = "send_alert"
)
