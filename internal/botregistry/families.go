package botregistry

// Category groups bot families by the kind of operator behind them.
type Category string

// Supported family categories.
const (
	CategorySearchEngine Category = "search_engine"
	CategoryLLM          Category = "llm"
)

// Bot is a single crawler identity and the lowercase user-agent substrings
// that identify it.
type Bot struct {
	Name     string   `json:"name"`
	Patterns []string `json:"-"`
}

// Family is a group of bots run by one organization. Color is only used by
// dashboards.
type Family struct {
	Name     string   `json:"family"`
	Category Category `json:"type"`
	Color    string   `json:"color"`
	Bots     []Bot    `json:"-"`
}

// families is ordered by importance. Within a family, bots whose patterns
// contain a more generic sibling's pattern must come first.
var families = []Family{
	// Search engines.
	{Name: "Google", Category: CategorySearchEngine, Color: "#4285F4", Bots: []Bot{
		{Name: "Googlebot-Image", Patterns: []string{"googlebot-image/"}},
		{Name: "Googlebot-Video", Patterns: []string{"googlebot-video/"}},
		{Name: "Googlebot-News", Patterns: []string{"googlebot-news"}},
		{Name: "Google-InspectionTool", Patterns: []string{"google-inspectiontool"}},
		{Name: "Storebot-Google", Patterns: []string{"storebot-google"}},
		{Name: "AdsBot-Google", Patterns: []string{"adsbot-google"}},
		{Name: "Googlebot", Patterns: []string{"googlebot/", "compatible; googlebot"}},
	}},
	{Name: "Microsoft", Category: CategorySearchEngine, Color: "#00A4EF", Bots: []Bot{
		{Name: "BingPreview", Patterns: []string{"bingpreview/"}},
		{Name: "AdIdxBot", Patterns: []string{"adidxbot"}},
		{Name: "MSNBot", Patterns: []string{"msnbot"}},
		{Name: "Bingbot", Patterns: []string{"bingbot/"}},
	}},
	{Name: "Yandex", Category: CategorySearchEngine, Color: "#FC3F1D", Bots: []Bot{
		{Name: "YandexImages", Patterns: []string{"yandeximages", "yandeximageresizer"}},
		{Name: "YandexBot", Patterns: []string{"yandexbot/"}},
	}},
	{Name: "Baidu", Category: CategorySearchEngine, Color: "#2932E1", Bots: []Bot{
		{Name: "Baiduspider", Patterns: []string{"baiduspider"}},
	}},
	{Name: "DuckDuckGo", Category: CategorySearchEngine, Color: "#DE5833", Bots: []Bot{
		{Name: "DuckAssistBot", Patterns: []string{"duckassistbot"}},
		{Name: "DuckDuckBot", Patterns: []string{"duckduckbot"}},
		{Name: "DuckDuckGo", Patterns: []string{"duckduckgo/"}},
	}},
	{Name: "Apple", Category: CategorySearchEngine, Color: "#555555", Bots: []Bot{
		{Name: "Applebot", Patterns: []string{"applebot"}},
	}},
	{Name: "Yahoo", Category: CategorySearchEngine, Color: "#720E9E", Bots: []Bot{
		{Name: "Slurp", Patterns: []string{"slurp"}},
	}},

	// LLM and AI crawlers.
	{Name: "OpenAI", Category: CategoryLLM, Color: "#10A37F", Bots: []Bot{
		{Name: "OAI-SearchBot", Patterns: []string{"oai-searchbot"}},
		{Name: "ChatGPT-User", Patterns: []string{"chatgpt-user"}},
		{Name: "GPTBot", Patterns: []string{"gptbot"}},
	}},
	{Name: "Anthropic", Category: CategoryLLM, Color: "#D4A574", Bots: []Bot{
		{Name: "Claude-SearchBot", Patterns: []string{"claude-searchbot"}},
		{Name: "Claude-User", Patterns: []string{"claude-user"}},
		{Name: "Claude-Web", Patterns: []string{"claude-web"}},
		{Name: "ClaudeBot", Patterns: []string{"claudebot"}},
	}},
	{Name: "Google AI", Category: CategoryLLM, Color: "#8E44AD", Bots: []Bot{
		{Name: "Gemini-Deep-Research", Patterns: []string{"gemini-deep-research"}},
		{Name: "GoogleAgent-Mariner", Patterns: []string{"googleagent-mariner"}},
		{Name: "Google-CloudVertexBot", Patterns: []string{"google-cloudvertexbot"}},
		{Name: "GoogleOther-Image", Patterns: []string{"googleother-image"}},
		{Name: "GoogleOther-Video", Patterns: []string{"googleother-video"}},
		{Name: "GoogleOther", Patterns: []string{"googleother"}},
	}},
	{Name: "Meta AI", Category: CategoryLLM, Color: "#0668E1", Bots: []Bot{
		{Name: "Meta-ExternalFetcher", Patterns: []string{"meta-externalfetcher"}},
		{Name: "Meta-WebIndexer", Patterns: []string{"meta-webindexer"}},
		{Name: "Meta-ExternalAgent", Patterns: []string{"meta-externalagent"}},
	}},
	{Name: "Perplexity", Category: CategoryLLM, Color: "#7C3AED", Bots: []Bot{
		{Name: "Perplexity-User", Patterns: []string{"perplexity-user"}},
		{Name: "PerplexityBot", Patterns: []string{"perplexitybot"}},
	}},
	{Name: "Bytedance", Category: CategoryLLM, Color: "#010101", Bots: []Bot{
		{Name: "TikTokSpider", Patterns: []string{"tiktokspider"}},
		{Name: "Bytespider", Patterns: []string{"bytespider"}},
	}},
	{Name: "Amazon", Category: CategoryLLM, Color: "#FF9900", Bots: []Bot{
		{Name: "AmazonBuyForMe", Patterns: []string{"amazonbuyforme"}},
		{Name: "Amazonbot", Patterns: []string{"amazonbot"}},
	}},
	{Name: "Cohere", Category: CategoryLLM, Color: "#39594D", Bots: []Bot{
		{Name: "Cohere-Training", Patterns: []string{"cohere-training-data-crawler"}},
		{Name: "CohereBot", Patterns: []string{"cohere-ai"}},
	}},
	{Name: "Mistral", Category: CategoryLLM, Color: "#F54E42", Bots: []Bot{
		{Name: "MistralAI-User", Patterns: []string{"mistralai-user"}},
	}},
	{Name: "DeepSeek", Category: CategoryLLM, Color: "#4D6BFE", Bots: []Bot{
		{Name: "DeepSeekBot", Patterns: []string{"deepseekbot"}},
	}},
	{Name: "xAI", Category: CategoryLLM, Color: "#1DA1F2", Bots: []Bot{
		{Name: "Grok-DeepSearch", Patterns: []string{"grok-deepsearch"}},
		{Name: "GrokBot", Patterns: []string{"grokbot"}},
		{Name: "xAI-Grok", Patterns: []string{"xai-grok"}},
	}},
	{Name: "CommonCrawl", Category: CategoryLLM, Color: "#E74C3C", Bots: []Bot{
		{Name: "CCBot", Patterns: []string{"ccbot"}},
	}},
	{Name: "You.com", Category: CategoryLLM, Color: "#6366F1", Bots: []Bot{
		{Name: "YouBot", Patterns: []string{"youbot"}},
	}},
	{Name: "Brave", Category: CategoryLLM, Color: "#FB542B", Bots: []Bot{
		{Name: "BraveBot", Patterns: []string{"bravebot"}},
	}},
	{Name: "Diffbot", Category: CategoryLLM, Color: "#1C7C54", Bots: []Bot{
		{Name: "Diffbot", Patterns: []string{"diffbot"}},
	}},
}

// excluded lists traffic that is never imported, even when a bot pattern
// also occurs in the user agent.
var excluded = []string{
	// SEO tools
	"ahrefsbot", "semrushbot", "semrushbot-si", "semrushbot-ocob",
	"dotbot", "mj12bot", "screaming frog", "seokicks", "sistrix",
	"rogerbot", "blexbot", "megaindex", "opensiteexplorer",
	"dataforseobot", "serpstatbot", "zoominfobot",
	// Social media link previews
	"facebookexternalhit", "facebot", "twitterbot", "linkedinbot",
	"whatsapp", "slackbot", "telegrambot", "discordbot",
	"pinterest", "snapchat",
	// Monitoring, CMS internals and generic HTTP clients
	"wordpress", "wp-cron",
	"python-requests", "python-httpx", "python-urllib",
	"go-http-client", "java/", "okhttp",
	"curl/", "wget/", "postman", "insomnia", "httpie",
	"uptimerobot", "statuscake", "pingdom", "site24x7",
	"newrelicpinger", "datadog",
	// Other crawlers
	"neevabot", "yahoo! slurp", "sogou",
	"archive.org_bot", "ia_archiver",
}
