// Package audio holds the decoded sample buffers used by mastering and the
// pure functions that mix them.
//
// Buffers are mono float64 samples at full scale ±1. Mixing functions never
// modify their inputs and assume every buffer shares one sample rate; the
// codec resamples on decode so that holds.
package audio
