// Package fingraph builds knowledge graphs from financial documents.
//
// Fingraph chunks a document into sentence-aware spans, asks a language
// model to extract entities and relationships from each chunk, translates
// the validated extractions into parameterized graph upserts, and writes
// them to Neo4j one transaction per chunk. Runs tolerate per-chunk failures
// and report them on the returned statistics instead of failing the run.
//
// # Basic Usage
//
// Create a client from an LLM client and a graph writer:
//
//	llmClient, err := nlp.NewOpenAIClient(apiKey, nlp.Config{
//		Model:   "llama3.1",
//		BaseURL: "http://localhost:11434/v1",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	writer := graph.NewNeo4jWriter(graph.Config{
//		URI:      "bolt://localhost:7687",
//		Username: "neo4j",
//		Password: "password",
//	}, nil)
//
//	client, err := fingraph.NewClient(llmClient, writer, nil, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
// # Running an Ingestion
//
//	stats, err := client.RunIngestion(ctx, text, types.Provenance{
//		DocumentID: "10k-2025",
//	}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("run %s: %s, %d chunks, %d entities\n",
//		stats.RunID, stats.State, stats.ChunksProcessed, stats.EntitiesWritten)
//
// # Degraded Mode
//
// When the graph store is unreachable a run can still extract knowledge:
// statements are journaled to a local replay log and written once the store
// is back:
//
//	journal, err := replay.Open("/var/lib/fingraph/replay", nil)
//	client, err := fingraph.NewClient(llmClient, writer, cfg, nil,
//		fingraph.WithJournal(journal))
//	...
//	stats, err := client.ReplayJournal(ctx)
package fingraph
