package outbox

// Topic is the single forwarder topic: events published inside database
// transactions land here and are forwarded to redis streams once the
// transaction commits.
const Topic = "events_to_forward"
