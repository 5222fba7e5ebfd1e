package watch

import "errors"

var (
	ErrInvalidKafkaConfig = errors.New("invalid Kafka configuration provided")
	ErrStreamOpenFailed   = errors.New("failed to open change stream")
	ErrSourceFailed       = errors.New("change stream source failed")
	ErrPublishFailed      = errors.New("failed to publish change event")
	ErrAlreadyRun         = errors.New("watcher has already been run")
)
