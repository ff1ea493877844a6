package common

const (
	RedisStreamScoutSession = "scout.session.run"

	RedisStreamGroup    = "scout-group"
	RedisStreamConsumer = "scout-consumer"
)
