package testutil

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NewInMemoryPubSub returns a gochannel transport for webhook tests
func NewInMemoryPubSub() message.Publisher {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
}
