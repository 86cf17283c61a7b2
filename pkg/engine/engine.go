package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/cas"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/chain"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/compress"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/config"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/crypto"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/index"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/maintenance"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/metrics"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/retrieval"
)

// Engine is a handle on one chain directory: its config, signing key, and
// chain log. It binds the rest of the packages into the public surface
// described in spec §6. Open and InitOptions accept an optional
// *slog.Logger (default slog.Default()); the other packages take no logger.
type Engine struct {
	dir    string
	cfg    config.Config
	policy config.Policy
	chain  *chain.Chain
	logger *slog.Logger
}

// maintenanceMinPeriod bounds how often an Orchestrator built by
// Engine.Orchestrator will allow a hourly/weekly pass to actually run.
const maintenanceMinPeriod = time.Minute

// InitOptions configures InitChain (spec §6 init_chain).
type InitOptions struct {
	AgentName string
	KeyMode   config.KeyMode
	Password  []byte // required when KeyMode == KeyModeEncrypted
	Logger    *slog.Logger
}

// InitChain runs the genesis initialization protocol: generates a keypair,
// persists key material and config.json, and writes the genesis entry.
func InitChain(dir string, opts InitOptions) (config.Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return config.Config{}, CryptoError{Op: "generate_keypair", Err: err}
	}

	if err := config.WriteKeyMaterial(dir, kp, opts.KeyMode, opts.Password); err != nil {
		return config.Config{}, CryptoError{Op: "write_key_material", Err: err}
	}

	ch, err := chain.Open(dir, kp)
	if err != nil {
		return config.Config{}, fmt.Errorf("engine: open chain for init: %w", err)
	}
	if _, err := ch.Init([]byte(opts.AgentName)); err != nil {
		return config.Config{}, translateChainError(err)
	}

	cfg := config.Config{
		Version:       "1",
		AgentName:     opts.AgentName,
		PublicKey:     kp.PublicKeyHex(),
		KeyMode:       opts.KeyMode,
		CreatedAt:     nowUTC(),
		SchemaVersion: config.CurrentSchemaVersion,
	}
	if err := config.Save(dir, cfg); err != nil {
		return config.Config{}, fmt.Errorf("engine: save config: %w", err)
	}

	metrics.Record(metrics.Event{Type: metrics.EventChainInit, Timestamp: nowUTC(), Data: map[string]any{"agent_name": opts.AgentName}})
	logger.Info("chain initialized", "dir", dir, "agent_name", opts.AgentName, "key_mode", opts.KeyMode)
	return cfg, nil
}

// Open loads an existing chain's config and key material and returns an
// Engine handle. provider supplies the password when the chain's key mode
// is encrypted; it may be nil otherwise.
func Open(dir string, provider config.PasswordProvider, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("engine: load config: %w", err)
	}

	kp, err := config.LoadKeyMaterial(dir, cfg, provider)
	if err != nil {
		return nil, CryptoError{Op: "load_key_material", Err: err}
	}

	ch, err := chain.Open(dir, kp)
	if err != nil {
		return nil, fmt.Errorf("engine: open chain: %w", err)
	}

	policy, err := config.LoadPolicy(dir)
	if err != nil {
		return nil, fmt.Errorf("engine: load maintenance policy: %w", err)
	}

	return &Engine{dir: dir, cfg: cfg, policy: policy, chain: ch, logger: logger}, nil
}

// Config returns the loaded config.json record.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Policy returns the loaded maintenance.yaml policy (spec §6 configuration),
// or config.DefaultPolicy() when no policy file was present.
func (e *Engine) Policy() config.Policy {
	return e.policy
}

// Orchestrator returns a maintenance.Orchestrator over idx, configured from
// this engine's loaded policy (spec §6 run_gc/update_decay_tiers, bound
// together into the hourly/weekly maintenance cadence).
func (e *Engine) Orchestrator(idx *index.Index) *maintenance.Orchestrator {
	return maintenance.NewOrchestrator(idx, maintenanceMinPeriod, e.policy.DecayThresholds(), e.policy.GCConfig())
}

// AddEntry appends a new entry to the chain (spec §6 add_entry).
func (e *Engine) AddEntry(entryType chain.EntryType, tier chain.Tier, content []byte, metadata map[string]any) (chain.Entry, error) {
	timer := metrics.StartTimer(metrics.EventEntryAdd, map[string]any{"type": string(entryType)})
	defer timer.Stop()

	entry, err := e.chain.Append(entryType, tier, content, metadata)
	if err != nil {
		return chain.Entry{}, translateChainError(err)
	}
	return entry, nil
}

// ReadChain returns every entry in append order (spec §6 read_chain).
func (e *Engine) ReadChain() ([]chain.Entry, error) {
	entries, err := e.chain.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("engine: read chain: %w", err)
	}
	return entries, nil
}

// VerifyResult mirrors chain.VerifyResult at the engine boundary, with
// findings reported as engine.IntegrityError (spec §6 verify_chain).
type VerifyResult struct {
	Valid          bool
	EntriesChecked int
	Errors         []IntegrityError
}

// VerifyChain checks sequence/hash/signature linkage and, optionally,
// content integrity (spec §6 verify_chain). It never aborts on a single
// finding; all findings accumulate into the result.
func (e *Engine) VerifyChain(checkContent bool) (VerifyResult, error) {
	timer := metrics.StartTimer(metrics.EventChainVerify, nil)
	defer timer.Stop()

	vr, err := e.chain.VerifyChain(chain.VerifyOptions{CheckContent: checkContent})
	if err != nil {
		return VerifyResult{}, fmt.Errorf("engine: verify chain: %w", err)
	}

	out := VerifyResult{Valid: vr.Valid, EntriesChecked: vr.EntriesChecked}
	for _, ve := range vr.Errors {
		out.Errors = append(out.Errors, IntegrityError{Kind: string(ve.Kind), Seq: ve.Seq, Message: ve.Message})
	}
	return out, nil
}

// Redact emits a redaction entry targeting targetSeq, optionally deleting
// its blob from the CAS (spec §6 redact).
func (e *Engine) Redact(targetSeq uint64, reason string, deleteBlob bool) (chain.Entry, error) {
	entry, err := e.chain.Redact(targetSeq, reason, deleteBlob)
	if err != nil {
		return chain.Entry{}, translateChainError(err)
	}
	return entry, nil
}

// Export produces a self-contained export of the chain (spec §6 export).
func (e *Engine) Export(includeBlobs bool) (chain.Export, error) {
	exp, err := e.chain.ExportChain(chain.ExportOptions{IncludeBlobs: includeBlobs})
	if err != nil {
		return chain.Export{}, fmt.Errorf("engine: export chain: %w", err)
	}
	return exp, nil
}

// ImportChain writes exp to a fresh directory (spec §6 import).
func ImportChain(exp chain.Export, dir string, verify, checkContent bool) (chain.ImportResult, error) {
	res, err := chain.Import(exp, dir, chain.ImportOptions{Verify: verify, CheckContent: checkContent})
	if err != nil {
		return chain.ImportResult{}, translateChainError(err)
	}
	return res, nil
}

// Stats summarizes the chain (spec's supplemented chain.Stats).
func (e *Engine) Stats() (chain.Stats, error) {
	return e.chain.Stats()
}

// GetContent returns the blob for digest, unverified. ok is false if absent.
func (e *Engine) GetContent(digest string) ([]byte, bool, error) {
	blob, ok, err := e.chain.CAS().Get(digest)
	if err != nil {
		return nil, false, fmt.Errorf("engine: get content: %w", err)
	}
	return blob, ok, nil
}

// GetContentVerified returns the blob for digest, recomputing its hash and
// returning ContentIntegrityError if it does not match (spec §7).
func (e *Engine) GetContentVerified(digest string) ([]byte, bool, error) {
	blob, ok, err := e.chain.CAS().GetVerified(digest)
	if err != nil {
		if errors.Is(err, cas.ErrTampered) {
			return nil, true, ContentIntegrityError{Digest: digest}
		}
		return nil, false, fmt.Errorf("engine: get verified content: %w", err)
	}
	return blob, ok, nil
}

// OpenIndex opens (creating if absent) the sqlite-backed index at path
// (spec §6 open_index).
func OpenIndex(path string) (*index.Index, error) {
	idx, err := index.Open(path)
	if err != nil {
		return nil, fmt.Errorf("engine: open index: %w", err)
	}
	return idx, nil
}

// RebuildIndex rebuilds idx from entries, using loader to resolve content
// (spec §6 rebuild_index).
func RebuildIndex(ctx context.Context, idx *index.Index, entries []chain.Entry, loader index.ContentLoader) (index.RebuildResult, error) {
	timer := metrics.StartTimer(metrics.EventIndexRebuild, map[string]any{"entries": len(entries)})
	defer timer.Stop()

	res, err := idx.RebuildFromChain(ctx, entries, loader)
	if err != nil {
		return index.RebuildResult{}, fmt.Errorf("engine: rebuild index: %w", err)
	}
	return res, nil
}

// Summarize produces an extractive summary for content under the given
// char budget, for Memory.summary population during ingestion.
func Summarize(content string, opts compress.Options) string {
	return compress.Summarize(content, opts)
}

// Retrieve runs the hybrid-scored retrieval pipeline (spec §6 retrieve).
func Retrieve(ctx context.Context, idx *index.Index, query string, opts retrieval.Options) ([]retrieval.ScoredMemory, error) {
	timer := metrics.StartTimer(metrics.EventRetrievalQuery, map[string]any{"query": query})
	defer timer.Stop()

	res, err := retrieval.Retrieve(ctx, idx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("engine: retrieve: %w", err)
	}
	return res, nil
}

// RetrieveContext runs the no-query context-scoring retrieval path (spec §6
// retrieve_context).
func RetrieveContext(ctx context.Context, idx *index.Index, opts retrieval.Options) ([]retrieval.ScoredMemory, error) {
	res, err := retrieval.RetrieveContext(ctx, idx, opts)
	if err != nil {
		return nil, fmt.Errorf("engine: retrieve context: %w", err)
	}
	return res, nil
}

// RunGC runs a garbage-collection pass over idx (spec §6 run_gc). GC is
// index-only; it never touches the chain or the CAS.
func RunGC(ctx context.Context, idx *index.Index, cfg maintenance.GCConfig) (maintenance.GCResult, error) {
	res, err := maintenance.RunGC(ctx, idx, cfg)
	if err != nil {
		return maintenance.GCResult{}, fmt.Errorf("engine: run gc: %w", err)
	}
	return res, nil
}

// UpdateDecayTiers runs a decay-tier update pass over idx (spec §6
// update_decay_tiers).
func UpdateDecayTiers(ctx context.Context, idx *index.Index, thresholds maintenance.DecayThresholds) (maintenance.DecayUpdateResult, error) {
	res, err := maintenance.UpdateDecayTiers(ctx, idx, thresholds, nowUTC())
	if err != nil {
		return maintenance.DecayUpdateResult{}, fmt.Errorf("engine: update decay tiers: %w", err)
	}
	return res, nil
}

// SetMetricsSink installs the process-wide metrics collector, or disables
// collection when collector is nil (spec §6 set_metrics_sink).
func SetMetricsSink(collector metrics.Collector) {
	metrics.SetCollector(collector)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// translateChainError maps pkg/chain sentinel errors onto the engine's
// typed error taxonomy (spec §7), so callers outside pkg/chain never need
// to import it just to classify a failure.
func translateChainError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chain.ErrBlobTooLarge):
		return ValidationError{Field: "content", Message: "blob exceeds 1 MiB"}
	case errors.Is(err, chain.ErrMetadataTooDeep):
		return ValidationError{Field: "metadata", Message: "nested too deeply or contains non-JSON values"}
	case errors.Is(err, chain.ErrInvalidType):
		return ValidationError{Field: "type", Message: err.Error()}
	case errors.Is(err, chain.ErrInvalidTier):
		return ValidationError{Field: "tier", Message: err.Error()}
	case errors.Is(err, chain.ErrRedactCommitted):
		return ValidationError{Field: "target_seq", Message: "cannot redact a committed entry"}
	case errors.Is(err, chain.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("engine: %w", err)
	}
}
