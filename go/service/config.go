package service

import (
	"time"

	mbp "go.gazette.dev/core/mainboilerplate"
)

// Config is the top-level configuration object of a ukur service.
type Config struct {
	Ukur struct {
		Port            uint16        `long:"port" env:"PORT" default:"8080" description:"Port of the HTTP API"`
		PollingInterval time.Duration `long:"polling-interval" env:"POLLING_INTERVAL" default:"30s" description:"Base cadence of upstream polls and journey flushes"`
		StoreMessages   bool          `long:"store-messages" env:"STORE_MESSAGES" description:"Archive processed messages as files"`
		ArchiveDir      string        `long:"archive-dir" env:"ARCHIVE_DIR" default:"messages" description:"Directory archived messages are written under"`
		SubscriptionDB  string        `long:"subscription-db" env:"SUBSCRIPTION_DB" default:"subscriptions.db" description:"Path of the subscription database"`
	} `group:"Ukur" namespace:"ukur" env-namespace:"UKUR"`

	Anshar struct {
		Operator        string `long:"operator" env:"OPERATOR" default:"NSB" description:"Operator whose journeys and situations are processed"`
		DisableET       bool   `long:"disable-et" env:"DISABLE_ET" description:"Do not ingest estimated timetables"`
		DisableSX       bool   `long:"disable-sx" env:"DISABLE_SX" description:"Do not ingest situation exchanges"`
		UseSubscription bool   `long:"use-subscription" env:"USE_SUBSCRIPTION" description:"Receive pushed messages from Anshar instead of polling"`
		ETPollingURL    string `long:"et-url" env:"ET_URL" default:"http://anshar/anshar/rest/et" description:"Anshar estimated timetable polling endpoint"`
		SXPollingURL    string `long:"sx-url" env:"SX_URL" default:"http://anshar/anshar/rest/sx" description:"Anshar situation exchange polling endpoint"`
		SubscriptionURL string `long:"subscription-url" env:"SUBSCRIPTION_URL" default:"http://anshar/anshar/subscribe" description:"Anshar subscription endpoint"`
		OwnBaseURL      string `long:"own-base-url" env:"OWN_BASE_URL" default:"http://ukur:8080" description:"Base URL Anshar pushes messages back to"`
	} `group:"Anshar" namespace:"anshar" env-namespace:"ANSHAR"`

	Tiamat struct {
		Enabled  bool          `long:"enabled" env:"ENABLED" description:"Periodically refresh the stop place mapping from Tiamat"`
		URL      string        `long:"url" env:"URL" default:"http://tiamat/services/stop_places/list/stop_place_quays" description:"Tiamat stop place quays endpoint"`
		Interval time.Duration `long:"interval" env:"INTERVAL" default:"6h" description:"Interval between stop place refreshes"`
	} `group:"Tiamat" namespace:"tiamat" env-namespace:"TIAMAT"`

	Etcd        mbp.EtcdConfig        `group:"Etcd" namespace:"etcd" env-namespace:"ETCD"`
	Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
}

// ETEnabled is whether estimated timetables are ingested and matched.
func (c *Config) ETEnabled() bool { return !c.Anshar.DisableET }

// SXEnabled is whether situation exchanges are ingested and matched.
func (c *Config) SXEnabled() bool { return !c.Anshar.DisableSX }
