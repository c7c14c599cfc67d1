package mcp

func (s *OracleMCP) registerTools() {
	// Discovery & multi-database tools
	s.server.AddTool(s.toolListDatabases())
	s.server.AddTool(s.toolLocateTable())
	s.server.AddTool(s.toolGetSessionInfo())

	// Schema inspection
	s.server.AddTool(s.toolListTables())
	s.server.AddTool(s.toolDescribeTable())
	s.server.AddTool(s.toolListConstraints())
	s.server.AddTool(s.toolListIndexes())
	s.server.AddTool(s.toolGetObjectDDL())

	// Query execution
	s.server.AddTool(s.toolRunReadOnlyQuery())
	s.server.AddTool(s.toolRunQueryWithPagination())
	s.server.AddTool(s.toolRunModificationQuery())
	s.server.AddTool(s.toolExplainQueryPlan())
	s.server.AddTool(s.toolExportQueryToCSV())
	s.server.AddTool(s.toolSearchInTable())

	// Import pipeline
	s.server.AddTool(s.toolAnalyzeImportFile())
	s.server.AddTool(s.toolImportDataFromFile())

	// Session & object management
	s.server.AddTool(s.toolInspectLocks())
	s.server.AddTool(s.toolKillSession())
	s.server.AddTool(s.toolListInvalidObjects())
	s.server.AddTool(s.toolCompileObject())
	s.server.AddTool(s.toolCheckTablespaceUsage())
	s.server.AddTool(s.toolGenerateMockData())
}
