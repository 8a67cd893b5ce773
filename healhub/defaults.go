// Package healhub holds process-wide defaults shared by the config layer and
// the inference pipeline.
package healhub

const (
	DefaultAppName = "healhub"

	// Model locations mirror the container layout: the fine-tuned chat model
	// and the sentiment classifier are mounted under /models.
	DefaultModelPath          = "/models/healhub-tinyllama-1.1B-Chat"
	DefaultBaseModelPath      = "jayayjay/TinyLlama-HealHub-FineTuned"
	DefaultSentimentModelPath = "/models/sentiment_model"

	DefaultDatabasePath = "data/healhub.db"
)
