package decision

// DefaultTemplates returns version 1 of every decision type's prompt
// template, active by default. These bodies are the Go text/template
// translation of the ten decision prompts this service has always used;
// an admin can register a new version and activate it without redeploying.
func DefaultTemplates() []*PromptTemplate {
	return []*PromptTemplate{
		{
			DecisionType: KindQueryUnderstanding,
			Version:      1,
			Active:       true,
			OutputFormat: "json",
			RequiredVariables: []string{"Query"},
			Body: `Analyze the following query to determine search parameters:

Query: "{{.Query}}"

Please identify:
1. Primary intent (information seeking, problem solving, how-to, etc.)
2. Technical domain (if applicable)
3. Expected answer type (explanation, code example, reference, etc.)
4. Key entities or concepts
5. Suggested workspaces to search

Return your analysis in JSON format.`,
		},
		{
			DecisionType: KindResultRelevance,
			Version:      1,
			Active:       true,
			OutputFormat: "json",
			RequiredVariables: []string{"Query", "ResultCount"},
			Body: `Evaluate the relevance of these search results for the query:

Query: "{{.Query}}"
Result count: {{.ResultCount}}

Please assess:
1. Overall relevance score (0-1)
2. Whether results directly answer the query
3. Whether results contain all necessary information
4. Missing information, if any
5. Whether a refined search is needed

Return your evaluation in JSON format.`,
		},
		{
			DecisionType: KindQueryRefinement,
			Version:      1,
			Active:       true,
			OutputFormat: "json",
			RequiredVariables: []string{"Query", "MissingInformation"},
			Body: `The following query did not yield sufficiently relevant results:

Original query: "{{.Query}}"
Missing information: {{.MissingInformation}}

Please generate a refined search query that:
1. Is more specific and targeted
2. Includes key technical terms
3. Focuses on the missing information
4. Is optimized for vector similarity search

Return the refined query plus strategy and term changes in JSON format.`,
		},
		{
			DecisionType: KindExternalSearchDecision,
			Version:      1,
			Active:       true,
			OutputFormat: "json",
			RequiredVariables: []string{"Query", "OverallQuality"},
			Body: `Determine if external search is needed based on:

Original query: "{{.Query}}"
Relevance score: {{.OverallQuality}}

Consider:
1. Is this a technical topic likely found in documentation?
2. Is the query about recent technologies or updates?
3. Would external search provide significantly better results?

Return your decision and reasoning in JSON format.`,
		},
		{
			DecisionType: KindExternalSearchQuery,
			Version:      1,
			Active:       true,
			OutputFormat: "json",
			RequiredVariables: []string{"Query"},
			Body: `Generate an optimal external search query based on:

Original query: "{{.Query}}"
Technology hint: "{{.TechnologyHint}}"
Missing information: {{.MissingInformation}}

Please create a search query that:
1. Is formatted for web search engines
2. Contains specific technical terms
3. Uses quotes for exact phrases if appropriate
4. Is focused on documentation sources

Return only the search query and its quoted/required/excluded terms in JSON format.`,
		},
		{
			DecisionType: KindContentExtraction,
			Version:      1,
			Active:       true,
			OutputFormat: "json",
			RequiredVariables: []string{"Content"},
			Body: `Extract the most relevant content from this documentation:

Document content:
{{.Content}}

Please:
1. Extract only sections directly relevant to the query
2. Preserve code examples if present
3. Remove irrelevant sections and navigation
4. Keep reference links intact

Return the extracted content and metadata in JSON format.`,
		},
		{
			DecisionType: KindResponseFormatSelection,
			Version:      1,
			Active:       true,
			OutputFormat: "json",
			RequiredVariables: []string{"Query", "ResultCount"},
			Body: `Decide the response format for these search results:

Query: "{{.Query}}"
Result count: {{.ResultCount}}
Has extracted content: {{.HasExtracted}}

If raw excerpts answer the query directly, choose "raw". If the results
need to be synthesized into a direct answer with citations, choose
"answer".

Return the response type and reasoning in JSON format.`,
		},
		{
			DecisionType: KindLearningOpportunities,
			Version:      1,
			Active:       true,
			OutputFormat: "json",
			RequiredVariables: []string{"Query"},
			Body: `Analyze this search interaction to identify knowledge gaps:

Query: "{{.Query}}"

Please identify:
1. Knowledge gaps in the documentation cache
2. Topics that should be ingested
3. Priority level for ingestion (high/medium/low)
4. Suggested source documentation
5. Workspace categorization

Return your analysis in JSON format.`,
		},
		{
			DecisionType: KindProviderSelection,
			Version:      1,
			Active:       true,
			OutputFormat: "json",
			RequiredVariables: []string{"Query", "AvailableProviders"},
			Body: `Select the optimal search provider for this query:

Query: "{{.Query}}"
Available providers: {{.AvailableProviders}}

Please analyze query type, technical domain specificity, provider
strengths, recent performance, and rate-limit state.

Return the selected provider id and reasoning in JSON format.`,
		},
		{
			DecisionType: KindFailureAnalysis,
			Version:      1,
			Active:       true,
			OutputFormat: "json",
			RequiredVariables: []string{"Query"},
			Body: `Analyze this failed search to improve future performance:

Original query: "{{.Query}}"

Please identify likely reasons for the failure, whether the query was
malformed or ambiguous, missing knowledge domains, technical limitations
encountered, and a user-facing message.

Return your analysis in JSON format.`,
		},
	}
}

// RegisterDefaultTemplates populates reg with every decision type's
// version-1 active template. Callers needing a different default (a
// custom prompt pack) register over it before the service starts serving
// traffic.
func RegisterDefaultTemplates(reg *TemplateRegistry) {
	for _, t := range DefaultTemplates() {
		reg.Register(t)
	}
}
