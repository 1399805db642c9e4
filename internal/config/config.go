package config

import "github.com/spf13/viper"

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Checkin struct {
		OrgID           int64 `mapstructure:"org_id"`
		BranchID        int64 `mapstructure:"branch_id"`
		CooldownSeconds int   `mapstructure:"cooldown_seconds"`
	} `mapstructure:"checkin"`

	Agent struct {
		Addr           string
		DataDir        string `mapstructure:"data_dir"`
		ServerURL      string `mapstructure:"server_url"`
		BundleSyncEach string `mapstructure:"bundle_sync_each"`
		DrainEach      string `mapstructure:"drain_each"`
	} `mapstructure:"agent"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	v.SetDefault("checkin.cooldown_seconds", 30)
	v.SetDefault("agent.bundle_sync_each", "@every 5m")
	v.SetDefault("agent.drain_each", "@every 30s")

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
