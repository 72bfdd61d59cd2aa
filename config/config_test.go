package config

import (
	"encoding/json"
	"os"
	"testing"
)

func validConfig() Configuration {
	return Configuration{
		ProjectName: "Test Project",
		Credentials: CredentialsConfig{
			ArchivesSpace: ArchivesSpaceConfig{
				APIURL:   "https://test.example.edu/api",
				Username: "admin",
				Password: "secret",
			},
		},
	}
}

func TestValidateAndAddDefaults(t *testing.T) {
	// Missing API URL must fail validation.
	cnf := validConfig()
	cnf.Credentials.ArchivesSpace.APIURL = ""
	if err := cnf.validateAndAddDefaults(); err == nil {
		t.Error("Expected error for missing API URL, got nil")
	}

	// Missing credentials must fail validation.
	cnf = validConfig()
	cnf.Credentials.ArchivesSpace.Password = ""
	if err := cnf.validateAndAddDefaults(); err == nil {
		t.Error("Expected error for missing password, got nil")
	}

	// A valid configuration gets run defaults filled in.
	cnf = validConfig()
	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cnf.Run.BatchSize != DEFAULT_BATCH_SIZE {
		t.Errorf("Expected default batch size %d, got %d", DEFAULT_BATCH_SIZE, cnf.Run.BatchSize)
	}
	if cnf.Run.Workers != DEFAULT_WORKERS {
		t.Errorf("Expected default workers %d, got %d", DEFAULT_WORKERS, cnf.Run.Workers)
	}
	if cnf.Run.MaxAttempts != DEFAULT_MAX_ATTEMPTS {
		t.Errorf("Expected default max attempts %d, got %d", DEFAULT_MAX_ATTEMPTS, cnf.Run.MaxAttempts)
	}
	if cnf.Paths.CheckpointDir != "logs/checkpoints" {
		t.Errorf("Expected default checkpoint dir, got %s", cnf.Paths.CheckpointDir)
	}

	// Explicit values are never overridden.
	cnf = validConfig()
	cnf.Run.BatchSize = 25
	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cnf.Run.BatchSize != 25 {
		t.Errorf("Expected batch size 25, got %d", cnf.Run.BatchSize)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "arksync.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := validConfig()
	sampleConfig.Run.BatchSize = 10

	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	cnf, err := Fetch()
	if err != nil {
		t.Fatalf("Expected config to be loaded, got %v", err)
	}
	if cnf.ProjectName != "Test Project" {
		t.Errorf("Expected project name to be set, got %s", cnf.ProjectName)
	}
	if cnf.Run.BatchSize != 10 {
		t.Errorf("Expected batch size 10 from file, got %d", cnf.Run.BatchSize)
	}
}

func TestAPIURLFor(t *testing.T) {
	cnf := validConfig()
	cnf.Credentials.ArchivesSpace.APIURL = "https://test.example.edu/api/"

	url, err := cnf.APIURLFor(EnvTest)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if url != "https://test.example.edu/api" {
		t.Errorf("Expected trailing slash trimmed, got %s", url)
	}

	// Production without an explicit URL must refuse, never guess.
	if _, err := cnf.APIURLFor(EnvProduction); err == nil {
		t.Error("Expected error for missing prod_api_url, got nil")
	}

	cnf.Credentials.ArchivesSpace.ProdAPIURL = "https://prod.example.edu/api"
	url, err = cnf.APIURLFor(EnvProduction)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if url != "https://prod.example.edu/api" {
		t.Errorf("Expected production URL, got %s", url)
	}

	if _, err := cnf.APIURLFor("staging"); err == nil {
		t.Error("Expected error for unknown environment, got nil")
	}
}
