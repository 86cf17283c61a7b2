package chain

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/crypto"
)

func newTestChain(t *testing.T) (*Chain, crypto.KeyPair) {
	t.Helper()
	dir := t.TempDir()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	c, err := Open(dir, kp)
	require.NoError(t, err)
	return c, kp
}

func TestInitWritesGenesis(t *testing.T) {
	c, _ := newTestChain(t)

	entry, err := c.Init([]byte("I am test-agent"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), entry.Seq)
	assert.Equal(t, TypeIdentity, entry.Type)
	assert.Equal(t, TierCommitted, entry.Tier)
	assert.Nil(t, entry.PrevHash)

	entries, err := c.ReadAll()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInitTwiceFails(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.Init([]byte("agent"))
	require.NoError(t, err)

	_, err = c.Init([]byte("agent again"))
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestAppendChainsSequentially(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.Init([]byte("agent"))
	require.NoError(t, err)

	e1, err := c.Append(TypeMemory, TierRelationship, []byte("first memory"), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e1.Seq)
	require.NotNil(t, e1.PrevHash)

	e2, err := c.Append(TypeMemory, TierEphemeral, []byte("second memory"), map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e2.Seq)

	entries, err := c.ReadAll()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestVerifyChainValid(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.Init([]byte("agent"))
	require.NoError(t, err)
	_, err = c.Append(TypeMemory, TierRelationship, []byte("memory one"), nil)
	require.NoError(t, err)
	_, err = c.Append(TypeDecision, TierCommitted, []byte("decision one"), nil)
	require.NoError(t, err)

	res, err := c.VerifyChain(VerifyOptions{CheckContent: true})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 3, res.EntriesChecked)
}

func TestVerifyChainDetectsSignatureTamperingViaWrongKey(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.Init([]byte("agent"))
	require.NoError(t, err)

	otherKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	cWrongKey := &Chain{dir: c.dir, keyPair: otherKP, cas: c.cas}

	res, err := cWrongKey.VerifyChain(VerifyOptions{})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, KindSignatureInvalid, res.Errors[0].Kind)
}

func TestVerifyChainAccumulatesMalformedEntryAndContinues(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.Init([]byte("agent"))
	require.NoError(t, err)
	e1, err := c.Append(TypeMemory, TierRelationship, []byte("memory one"), nil)
	require.NoError(t, err)

	// Corrupt the file with a malformed line, then append a further entry
	// directly (bypassing Append, whose tail read would otherwise hit the
	// same strict parser used outside of verification).
	f, err := os.OpenFile(c.path(), os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not valid json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	prevHash, err := e1.CanonicalHash()
	require.NoError(t, err)
	contentHash, err := c.cas.Store([]byte("memory two"))
	require.NoError(t, err)
	e3, err := c.buildAndSign(2, TypeMemory, TierRelationship, contentHash, &prevHash, nil)
	require.NoError(t, err)
	require.NoError(t, c.appendLine(e3))

	res, err := c.VerifyChain(VerifyOptions{})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, 3, res.EntriesChecked) // genesis + two real memories; malformed line excluded

	var kinds []IntegrityErrorKind
	for _, e := range res.Errors {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, KindMalformedEntry)
	// e3 is seq 2 but lands at scan position 3 (genesis, e1, malformed line,
	// e3), so it also surfaces as a sequence gap.
	assert.Contains(t, kinds, KindSequenceGap)
}

func TestRedactRejectsCommittedTier(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.Init([]byte("agent"))
	require.NoError(t, err)

	_, err = c.Redact(0, "test reason", false)
	assert.ErrorIs(t, err, ErrRedactCommitted)
}

func TestRedactAllowsNonCommittedTier(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.Init([]byte("agent"))
	require.NoError(t, err)

	target, err := c.Append(TypeMemory, TierEphemeral, []byte("secret"), nil)
	require.NoError(t, err)

	redaction, err := c.Redact(target.Seq, "no longer needed", true)
	require.NoError(t, err)
	assert.Equal(t, TypeRedaction, redaction.Type)

	blob, ok, err := c.cas.Get(target.ContentHash)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, blob)
}

func TestAppendRejectsOversizedBlob(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.Init([]byte("agent"))
	require.NoError(t, err)

	_, err = c.Append(TypeMemory, TierRelationship, make([]byte, (1<<20)+1), nil)
	assert.ErrorIs(t, err, ErrBlobTooLarge)
}

func TestAppendRejectsDeepMetadata(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.Init([]byte("agent"))
	require.NoError(t, err)

	deep := map[string]any{"a": map[string]any{"b": map[string]any{"c": map[string]any{"d": map[string]any{"e": map[string]any{"f": 1}}}}}}
	_, err = c.Append(TypeMemory, TierRelationship, []byte("x"), deep)
	assert.ErrorIs(t, err, ErrMetadataTooDeep)
}

func TestExportImportRoundTrip(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.Init([]byte("agent"))
	require.NoError(t, err)
	_, err = c.Append(TypeMemory, TierRelationship, []byte("memory one"), nil)
	require.NoError(t, err)

	exp, err := c.ExportChain(ExportOptions{IncludeBlobs: true})
	require.NoError(t, err)
	assert.Len(t, exp.Entries, 2)
	assert.Len(t, exp.Blobs, 2)

	destDir := t.TempDir() + "/imported"
	res, err := Import(exp, destDir, ImportOptions{Verify: true, CheckContent: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.EntriesImported)
	assert.Equal(t, 2, res.BlobsImported)
	require.NotNil(t, res.VerifyResult)
	assert.True(t, res.VerifyResult.Valid)
}

func TestGetBySeqNotFound(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.Init([]byte("agent"))
	require.NoError(t, err)

	_, ok, err := c.GetBySeq(99)
	require.NoError(t, err)
	assert.False(t, ok)
}
