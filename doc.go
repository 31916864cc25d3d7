// Package ragpipe is the embeddable SDK for the ragpipe question-answering
// pipeline: multi-query expansion, vector retrieval over Redis, and answer
// composition grounded in the retrieved documents.
//
// Minimal usage:
//
//	client, _ := ragpipe.New(
//	    ragpipe.WithRedis("localhost:6379", ""),
//	    ragpipe.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	)
//	defer client.Close()
//
//	client.UpsertDocument(ctx, "doc-1", "Paris is the capital of France.", nil)
//	answer, _ := client.Ask(ctx, "What is the capital of France?")
//	fmt.Println(answer.Text)
package ragpipe
