package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/features"
)

const encoderArtifact = "encoder"

// Registry loads classifier artifacts on first use and caches the handles
// for the lifetime of the process. Reads of the cache are safe from any
// number of requests concurrently.
type Registry struct {
	dir     string
	baseURL string
	rest    *resty.Client

	mu      sync.RWMutex
	handles map[string]*Handle
	encoder *LabelEncoder
}

// NewRegistry creates a registry over the artifact directory. When baseURL is
// non-empty, artifacts absent from the directory are downloaded from
// <baseURL>/<name>.json before loading.
func NewRegistry(dir, baseURL string, timeout time.Duration) *Registry {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second)
	}
	return &Registry{
		dir:     dir,
		baseURL: baseURL,
		rest:    r,
		handles: make(map[string]*Handle),
	}
}

// Load returns the handle for modelID, loading and caching the artifact on
// first use. Unknown ids and unreadable or corrupt artifacts fail with an
// ArtifactError.
func (r *Registry) Load(ctx context.Context, modelID string) (*Handle, error) {
	if !KnownModel(modelID) {
		return nil, &ArtifactError{Artifact: modelID, Err: errors.New("unknown model id")}
	}

	r.mu.RLock()
	h, ok := r.handles[modelID]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[modelID]; ok {
		return h, nil
	}

	h, err := r.loadHandle(ctx, modelID)
	if err != nil {
		return nil, err
	}
	r.handles[modelID] = h

	log.Info().
		Str("model", modelID).
		Str("algorithm", h.algorithm).
		Int("trees", len(h.trees)).
		Msg("model artifact loaded")
	return h, nil
}

// LoadEncoder returns the shared label encoder, loading it on first use.
func (r *Registry) LoadEncoder(ctx context.Context) (*LabelEncoder, error) {
	r.mu.RLock()
	enc := r.encoder
	r.mu.RUnlock()
	if enc != nil {
		return enc, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder != nil {
		return r.encoder, nil
	}

	data, err := r.artifactBytes(ctx, encoderArtifact)
	if err != nil {
		return nil, err
	}
	enc, err = parseEncoder(data)
	if err != nil {
		return nil, &ArtifactError{Artifact: encoderArtifact, Err: err}
	}
	r.encoder = enc
	return enc, nil
}

func (r *Registry) loadHandle(ctx context.Context, modelID string) (*Handle, error) {
	data, err := r.artifactBytes(ctx, modelID)
	if err != nil {
		return nil, err
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &ArtifactError{Artifact: modelID, Err: fmt.Errorf("corrupt artifact: %w", err)}
	}
	if err := validateArtifact(modelID, &a); err != nil {
		return nil, &ArtifactError{Artifact: modelID, Err: err}
	}

	return &Handle{
		id:           modelID,
		algorithm:    a.Algorithm,
		schema:       a.Schema,
		categorical:  a.Categorical,
		baseScore:    a.BaseScore,
		learningRate: a.LearningRate,
		trees:        a.Trees,
	}, nil
}

// artifactBytes reads <dir>/<name>.json, fetching it from the remote base
// URL first when it is missing locally.
func (r *Registry) artifactBytes(ctx context.Context, name string) ([]byte, error) {
	path := filepath.Join(r.dir, name+".json")

	if _, err := os.Stat(path); os.IsNotExist(err) && r.baseURL != "" {
		if err := r.fetch(ctx, name, path); err != nil {
			return nil, &ArtifactError{Artifact: name, Err: err}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactError{Artifact: name, Err: err}
	}
	return data, nil
}

func (r *Registry) fetch(ctx context.Context, name, path string) error {
	url := fmt.Sprintf("%s/%s.json", r.baseURL, name)
	log.Info().Str("artifact", name).Str("url", url).Msg("fetching artifact")

	resp, err := r.rest.R().
		SetContext(ctx).
		SetOutput(path).
		Get(url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.IsError() {
		// resty writes the error body to the output file; drop it.
		os.Remove(path)
		return fmt.Errorf("fetch %s: status %s", url, resp.Status())
	}
	return nil
}

func validateArtifact(modelID string, a *artifact) error {
	if a.ModelID != modelID {
		return fmt.Errorf("artifact names model %q, expected %q", a.ModelID, modelID)
	}
	if a.Algorithm != algGradientBoosting && a.Algorithm != algRandomForest {
		return fmt.Errorf("unsupported algorithm %q", a.Algorithm)
	}
	if len(a.Trees) == 0 {
		return errors.New("artifact carries no trees")
	}
	if len(a.Schema) != len(features.Schema) {
		return fmt.Errorf("artifact schema has %d columns, expected %d", len(a.Schema), len(features.Schema))
	}
	for i, col := range features.Schema {
		if a.Schema[i] != col {
			return fmt.Errorf("artifact schema column %d is %q, expected %q", i, a.Schema[i], col)
		}
	}
	return nil
}
