package trainer

// TrainableModel receives sanitized gradients.
type TrainableModel interface {
	ParamsLen() int
	ApplyGradients(gradients []float32, learningRate float32)
}

// GradientProducer computes raw gradients for one batch. An empty result
// marks the batch as unusable.
type GradientProducer[B any] interface {
	ComputeGradients(batch B) []float32
}

type Model[B any] interface {
	TrainableModel
	GradientProducer[B]
}
