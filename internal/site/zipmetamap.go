package site

// ZipMetaMap builds the landing page document for zip-meta-map. Call it once
// at startup and validate the result before publishing.
func ZipMetaMap() *Document {
	return &Document{
		Title:       "Zip Meta Map",
		Description: "Turn any ZIP or folder into an LLM-friendly metadata bundle — role-classified files, traversal plans, byte budgets.",
		LogoBadge:   "ZM",
		BrandName:   "zip-meta-map",
		RepoURL:     "https://github.com/mcp-tool-shop-org/zip-meta-map",
		FooterText:  `MIT Licensed — built by <a href="https://github.com/mcp-tool-shop-org" style="color:var(--color-muted);text-decoration:underline">mcp-tool-shop-org</a>`,

		Hero: &Hero{
			Badge:          "AI Tooling",
			Headline:       "Map any archive",
			HeadlineAccent: "for LLM navigation.",
			Description:    "Generate a deterministic metadata layer that tells AI agents what's inside, what matters first, and how to navigate without drowning in context.",
			PrimaryCTA:     CTA{Href: "#install", Label: "Get started"},
			SecondaryCTA:   CTA{Href: "#features", Label: "See features"},
			Previews: []Preview{
				{Label: "Install", Code: "pip install zip-meta-map"},
				{Label: "Build", Code: "zip-meta-map build my-project/ -o output/\n# Profile: python_cli  Files: 47"},
				{Label: "Explain", Code: "zip-meta-map explain my-project/\n# Top files to read first:\n#   README.md  [doc]  conf=0.95"},
			},
		},

		Sections: Sections{
			&FeaturesSection{
				ID:       "features",
				Title:    "Features",
				Subtitle: "Three questions, answered automatically.",
				Features: []Feature{
					{Title: "Role classification", Desc: "Every file gets a role (entrypoint, config, doc, test, etc.), a confidence score, and a reason — bounded vocabulary, deterministic heuristics."},
					{Title: "Traversal plans", Desc: "Auto-generated reading plans with byte budgets: overview, debug, add_feature, security_review, deep_dive — so agents know where to start."},
					{Title: "Progressive disclosure", Desc: "Chunk maps for large files, module summaries, excerpts, risk flags (exec_shell, secrets_like, network_io), and capability negotiation."},
				},
			},
			&CodeCardsSection{
				ID:    "install",
				Title: "Usage",
				Cards: []Card{
					{
						Title: "CLI",
						Code:  "# Build metadata for a folder or ZIP\nzip-meta-map build path/to/repo -o output/\n\n# Explain what was detected\nzip-meta-map explain path/to/repo\n\n# Compare two indices (CI-friendly)\nzip-meta-map diff old.json new.json --exit-code\n\n# Validate an existing index\nzip-meta-map validate META_ZIP_INDEX.json",
					},
					{
						Title: "GitHub Action",
						Code:  "- name: Generate metadata map\n  uses: mcp-tool-shop-org/zip-meta-map@v0\n  with:\n    path: .\n\n# Outputs: index-path, front-path,\n#   profile, file-count, warnings-count\n# Set pr-comment: true for PR summaries",
					},
				},
			},
			&DataTableSection{
				ID:       "outputs",
				Title:    "What It Generates",
				Subtitle: "Three files, each with a clear purpose.",
				Columns:  []string{"File", "Purpose"},
				Rows: [][]string{
					{"META_ZIP_FRONT.md", "Human-readable orientation page"},
					{"META_ZIP_INDEX.json", "Machine-readable index with roles, confidence, plans, chunks, excerpts, risk flags"},
					{"META_ZIP_REPORT.md", "Detailed browseable report (with --report md)"},
				},
			},
			&DataTableSection{
				ID:       "profiles",
				Title:    "Profiles",
				Subtitle: "Auto-detected by repo shape.",
				Columns:  []string{"Profile", "Detected By", "Plans"},
				Rows: [][]string{
					{"python_cli", "pyproject.toml, setup.py", "overview, debug, add_feature, security_review, deep_dive"},
					{"node_ts_tool", "package.json, tsconfig.json", "overview, debug, add_feature, security_review, deep_dive"},
					{"monorepo", "pnpm-workspace.yaml, lerna.json", "overview, debug, add_feature, security_review, deep_dive"},
				},
			},
			&FeaturesSection{
				ID:       "design",
				Title:    "Design",
				Subtitle: "Built for reliability and stability.",
				Features: []Feature{
					{Title: "Deterministic", Desc: "Same input always produces the same output. Heuristics are rule-based, not probabilistic — diffs are meaningful."},
					{Title: "Spec-versioned", Desc: "Follows semver: minor bumps add fields, major bumps break consumers. capabilities[] advertises which features are populated."},
					{Title: "Risk-aware", Desc: "Flags exec_shell, secrets_like, network_io, path_traversal, binary_masquerade, and binary_executable automatically."},
				},
			},
		},
	}
}
