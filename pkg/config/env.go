package config

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified
// env tags, so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)
