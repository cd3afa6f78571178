package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// 触发进度重算的来源，用于指标标签
const (
	TriggerLogin      = "login"
	TriggerSubmission = "submission"
	TriggerBackground = "background"
	TriggerAdmin      = "admin"
	TriggerCatalog    = "catalog"
	TriggerCLI        = "cli"
)
