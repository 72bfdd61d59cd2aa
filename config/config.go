/*
Copyright 2025 Arksync Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	EnvTest       = "test"
	EnvProduction = "production"

	DEFAULT_BATCH_SIZE          = 5
	DEFAULT_WORKERS             = 2
	DEFAULT_CHECKPOINT_INTERVAL = 10
	DEFAULT_REFRESH_INTERVAL    = 100
	DEFAULT_MAX_ATTEMPTS        = 3
	DEFAULT_THROTTLE_RPS        = 10
)

var ConfigStore atomic.Value

// ArchivesSpaceConfig holds the primary record system credentials. The
// production URL is never derived from the test URL; a live run against
// production without an explicit prod_api_url fails at startup.
type ArchivesSpaceConfig struct {
	APIURL     string `json:"api_url" envconfig:"ARKSYNC_ASPACE_API_URL"`
	ProdAPIURL string `json:"prod_api_url" envconfig:"ARKSYNC_ASPACE_PROD_API_URL"`
	Username   string `json:"username" envconfig:"ARKSYNC_ASPACE_USERNAME"`
	Password   string `json:"password" envconfig:"ARKSYNC_ASPACE_PASSWORD"`
}

func (c ArchivesSpaceConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIURL, validation.Required, is.URL),
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

type SNACConfig struct {
	BaseURL string `json:"base_url" envconfig:"ARKSYNC_SNAC_BASE_URL"`
}

type CredentialsConfig struct {
	ArchivesSpace ArchivesSpaceConfig `json:"archivesspace_api"`
	SNAC          SNACConfig          `json:"snac_api"`
}

// PathsConfig names every on-disk artifact location. All are single-writer
// per run.
type PathsConfig struct {
	SourceCSV         string `json:"source_csv" envconfig:"ARKSYNC_SOURCE_CSV"`
	SkipListCSV       string `json:"skip_list_csv" envconfig:"ARKSYNC_SKIP_LIST_CSV"`
	PrimaryCacheDir   string `json:"primary_cache_dir" envconfig:"ARKSYNC_PRIMARY_CACHE_DIR"`
	SecondaryCacheDir string `json:"secondary_cache_dir" envconfig:"ARKSYNC_SECONDARY_CACHE_DIR"`
	SNACCacheDir      string `json:"snac_cache_dir" envconfig:"ARKSYNC_SNAC_CACHE_DIR"`
	CheckpointDir     string `json:"checkpoint_dir" envconfig:"ARKSYNC_CHECKPOINT_DIR"`
	ReportsDir        string `json:"reports_dir" envconfig:"ARKSYNC_REPORTS_DIR"`
}

// RunConfig carries the batch orchestrator knobs. Everything here is an
// explicit input; there are no hidden toggles.
type RunConfig struct {
	BatchSize          int     `json:"batch_size" envconfig:"ARKSYNC_BATCH_SIZE"`
	Workers            int     `json:"workers" envconfig:"ARKSYNC_WORKERS"`
	CheckpointInterval int     `json:"checkpoint_interval" envconfig:"ARKSYNC_CHECKPOINT_INTERVAL"`
	RefreshInterval    int     `json:"refresh_interval" envconfig:"ARKSYNC_REFRESH_INTERVAL"`
	MaxAttempts        int     `json:"max_attempts" envconfig:"ARKSYNC_MAX_ATTEMPTS"`
	ThrottleRPS        float64 `json:"throttle_rps" envconfig:"ARKSYNC_THROTTLE_RPS"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"ARKSYNC_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string            `json:"project_name" envconfig:"ARKSYNC_PROJECT_NAME"`
	Credentials  CredentialsConfig `json:"credentials"`
	Paths        PathsConfig       `json:"paths"`
	Run          RunConfig         `json:"run"`
	Notification Notification      `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("arksync", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called arksync.json with your config")
	}
	return c, nil
}

// APIURLFor resolves the base address for the chosen environment. Production
// requires an explicit prod_api_url: the tool refuses to guess an address
// that live mutations would be written to.
func (cnf *Configuration) APIURLFor(environment string) (string, error) {
	switch environment {
	case EnvProduction:
		if cnf.Credentials.ArchivesSpace.ProdAPIURL == "" {
			return "", errors.New("production environment selected but prod_api_url is not configured")
		}
		return strings.TrimRight(cnf.Credentials.ArchivesSpace.ProdAPIURL, "/"), nil
	case EnvTest:
		return strings.TrimRight(cnf.Credentials.ArchivesSpace.APIURL, "/"), nil
	default:
		return "", errors.New("unknown environment: " + environment)
	}
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Arksync"
	}

	if err := cnf.Credentials.ArchivesSpace.Validate(); err != nil {
		log.Printf("Error: invalid ArchivesSpace credentials: %v", err)
		return err
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Credentials.ArchivesSpace.APIURL = strings.TrimSpace(cnf.Credentials.ArchivesSpace.APIURL)
	cnf.Credentials.ArchivesSpace.ProdAPIURL = strings.TrimSpace(cnf.Credentials.ArchivesSpace.ProdAPIURL)
	cnf.Credentials.ArchivesSpace.Username = strings.TrimSpace(cnf.Credentials.ArchivesSpace.Username)
	cnf.Credentials.SNAC.BaseURL = strings.TrimSpace(cnf.Credentials.SNAC.BaseURL)

	if cnf.Paths.PrimaryCacheDir == "" {
		cnf.Paths.PrimaryCacheDir = "cache/aspace_prod_cache"
	}
	if cnf.Paths.SecondaryCacheDir == "" {
		cnf.Paths.SecondaryCacheDir = "cache/aspace_cache"
	}
	if cnf.Paths.SNACCacheDir == "" {
		cnf.Paths.SNACCacheDir = "cache/snac_cache"
	}
	if cnf.Paths.CheckpointDir == "" {
		cnf.Paths.CheckpointDir = "logs/checkpoints"
	}
	if cnf.Paths.ReportsDir == "" {
		cnf.Paths.ReportsDir = "reports"
	}

	if cnf.Run.BatchSize <= 0 {
		log.Printf("Warning: batch size not specified. Setting default value: %d", DEFAULT_BATCH_SIZE)
		cnf.Run.BatchSize = DEFAULT_BATCH_SIZE
	}
	if cnf.Run.Workers <= 0 {
		log.Printf("Warning: worker count not specified. Setting default value: %d", DEFAULT_WORKERS)
		cnf.Run.Workers = DEFAULT_WORKERS
	}
	if cnf.Run.CheckpointInterval <= 0 {
		cnf.Run.CheckpointInterval = DEFAULT_CHECKPOINT_INTERVAL
	}
	if cnf.Run.RefreshInterval <= 0 {
		cnf.Run.RefreshInterval = DEFAULT_REFRESH_INTERVAL
	}
	if cnf.Run.MaxAttempts <= 0 {
		cnf.Run.MaxAttempts = DEFAULT_MAX_ATTEMPTS
	}
	if cnf.Run.ThrottleRPS <= 0 {
		cnf.Run.ThrottleRPS = DEFAULT_THROTTLE_RPS
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
