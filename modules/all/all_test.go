package all_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/logging"
	"github.com/steveyegge/contentfactory/internal/manager"
	_ "github.com/steveyegge/contentfactory/modules/all"
)

func TestBundledModulesDiscover(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("CF_TELEGRAM_TOKEN", "")

	m := manager.New(manager.WithLogger(logging.Discard()))
	report := m.DiscoverAll(context.Background(), "..")

	for kind, rep := range report {
		assert.Empty(t, rep.Failed, "kind %s", kind)
		assert.False(t, rep.Missing, "kind %s", kind)
	}
	assert.Equal(t, manager.Stats{Parsers: 2, LLMProviders: 1, Agents: 2, SocialNetworks: 1}, m.Stats())
	assert.Equal(t, []string{"rss_parser", "web_parser"}, m.Parsers.Names())

	d, ok := m.Describe(contracts.KindAgent, "news_processor")
	require.True(t, ok)
	assert.Equal(t, contracts.RoleNewsProcessor, d.Role)

	d, ok = m.Describe(contracts.KindSocialNetwork, "telegram")
	require.True(t, ok)
	assert.Equal(t, 4096, d.MaxContentLength)
	assert.Equal(t, []contracts.PostType{contracts.PostText, contracts.PostImage}, d.SupportedTypes)

	require.NoError(t, m.InitializeAll(context.Background(), nil))
	require.NoError(t, m.Cleanup(context.Background()))
}
