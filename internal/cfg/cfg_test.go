package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/model"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults with no environment",
			envVars: map[string]string{},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.ModelsDir != "models" {
					t.Errorf("expected default ModelsDir 'models', got %s", settings.ModelsDir)
				}
				if settings.DefaultModel != model.GradientBoostedTrees {
					t.Errorf("expected default model %s, got %s", model.GradientBoostedTrees, settings.DefaultModel)
				}
				if settings.ChunkSize != 500 {
					t.Errorf("expected default ChunkSize 500, got %d", settings.ChunkSize)
				}
				if settings.ServerPort != 8080 || settings.MetricsPort != 9090 {
					t.Errorf("expected default ports 8080/9090, got %d/%d", settings.ServerPort, settings.MetricsPort)
				}
				if settings.RESTTimeout != 10*time.Second {
					t.Errorf("expected default RESTTimeout 10s, got %v", settings.RESTTimeout)
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"MODELS_DIR":    "/var/lib/models",
				"DEFAULT_MODEL": model.RandomForestEnsemble,
				"CHUNK_SIZE":    "1000",
				"SERVER_PORT":   "8888",
				"REST_TIMEOUT":  "30s",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.ModelsDir != "/var/lib/models" {
					t.Errorf("ModelsDir = %s", settings.ModelsDir)
				}
				if settings.DefaultModel != model.RandomForestEnsemble {
					t.Errorf("DefaultModel = %s", settings.DefaultModel)
				}
				if settings.ChunkSize != 1000 {
					t.Errorf("ChunkSize = %d", settings.ChunkSize)
				}
				if settings.ServerPort != 8888 {
					t.Errorf("ServerPort = %d", settings.ServerPort)
				}
				if settings.RESTTimeout != 30*time.Second {
					t.Errorf("RESTTimeout = %v", settings.RESTTimeout)
				}
			},
		},
		{
			name:    "unknown default model",
			envVars: map[string]string{"DEFAULT_MODEL": "linear-regression"},
			wantErr: true,
		},
		{
			name:    "chunk size out of range",
			envVars: map[string]string{"CHUNK_SIZE": "0"},
			wantErr: true,
		},
		{
			name:    "server port too low",
			envVars: map[string]string{"SERVER_PORT": "80"},
			wantErr: true,
		},
		{
			name: "server and metrics port collision",
			envVars: map[string]string{
				"SERVER_PORT":  "9090",
				"METRICS_PORT": "9090",
			},
			wantErr: true,
		},
		{
			name:    "timeout out of range",
			envVars: map[string]string{"REST_TIMEOUT": "5m"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			settings, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	content := `
models:
  dir: /opt/models
  baseURL: https://artifacts.example.com
  defaultModel: random-forest-ensemble
data:
  path: /var/lib/incomed
  inbuiltDataset: /var/lib/incomed/inbuilt.csv
  chunkSize: 250
history:
  dir: /var/lib/incomed/history
system:
  serverPort: 8081
  metricsPort: 9091
  restTimeout: 15s
`
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	settings, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if settings.ModelsDir != "/opt/models" {
		t.Errorf("ModelsDir = %s", settings.ModelsDir)
	}
	if settings.ModelsBaseURL != "https://artifacts.example.com" {
		t.Errorf("ModelsBaseURL = %s", settings.ModelsBaseURL)
	}
	if settings.DefaultModel != model.RandomForestEnsemble {
		t.Errorf("DefaultModel = %s", settings.DefaultModel)
	}
	if settings.ChunkSize != 250 {
		t.Errorf("ChunkSize = %d", settings.ChunkSize)
	}
	if settings.InbuiltDataset != "/var/lib/incomed/inbuilt.csv" {
		t.Errorf("InbuiltDataset = %s", settings.InbuiltDataset)
	}
	if settings.ServerPort != 8081 || settings.MetricsPort != 9091 {
		t.Errorf("ports = %d/%d", settings.ServerPort, settings.MetricsPort)
	}
	if settings.RESTTimeout != 15*time.Second {
		t.Errorf("RESTTimeout = %v", settings.RESTTimeout)
	}
}

func TestLoadFromYAML_EnvOverrides(t *testing.T) {
	content := `
models:
  dir: /opt/models
system:
  serverPort: 8081
`
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MODELS_DIR", "/env/wins")
	t.Setenv("SERVER_PORT", "8082")

	settings, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.ModelsDir != "/env/wins" {
		t.Errorf("env override lost, ModelsDir = %s", settings.ModelsDir)
	}
	if settings.ServerPort != 8082 {
		t.Errorf("env override lost, ServerPort = %d", settings.ServerPort)
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFromYAML_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("models: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}
