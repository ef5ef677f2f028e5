package config

type WorkerKeyStruct struct {
	RedeliverAnswersQueue string
}

var WorkerKey = &WorkerKeyStruct{
	RedeliverAnswersQueue: "redeliver_answers_queue",
}
