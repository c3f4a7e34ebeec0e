// Package all links every bundled module into the binary. Import it for
// side effects; each module registers itself with the discovery catalog.
package all

import (
	_ "github.com/steveyegge/contentfactory/modules/agents/content_generator"
	_ "github.com/steveyegge/contentfactory/modules/agents/news_processor"
	_ "github.com/steveyegge/contentfactory/modules/llm_providers/anthropic"
	_ "github.com/steveyegge/contentfactory/modules/parsers/rss_parser"
	_ "github.com/steveyegge/contentfactory/modules/parsers/web_parser"
	_ "github.com/steveyegge/contentfactory/modules/social_networks/telegram"
)
