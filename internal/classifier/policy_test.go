package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barros404/finance-sub003/internal/core/domain"
)

func TestLoadPolicyEmptyPathReturnsDefaults(t *testing.T) {
	policy, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), policy)
}

func TestLoadPolicyOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := []byte("top_n: 3\nmin_confidence: 50\nkind_classes:\n  cost: [7]\n  revenue: [6]\n  asset: [1]\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	policy, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, 3, policy.TopN)
	assert.Equal(t, 50, policy.MinConfidence)
	assert.Equal(t, []int{1}, policy.ClassesFor(domain.KindAsset))
	// untouched fields keep defaults
	assert.Equal(t, DefaultPolicy().LexiconWeight, policy.LexiconWeight)
	assert.NotEmpty(t, policy.StopWords)
}

func TestLoadPolicyRejectsBadConfidence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_confidence: 250\n"), 0o644))

	_, err := LoadPolicy(path)
	assert.Error(t, err)
}

func TestLoadPolicyMissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
