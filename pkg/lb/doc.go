/*
Package lb implements the Load Balancer: the client-facing HTTP API, the
Request Queue's single consumer Worker, and the Scaling Publisher.

# Request flow

A client's upload/download/delete call lands on Server, which builds a
types.Request carrying a Forward closure that knows how to replay the
call against whatever backend endpoint gets picked, enqueues it onto the
Request Queue, and blocks on the request's Done channel. Worker is the
Request Queue's only consumer: it dequeues the highest-priority request,
asks the registry for the current healthy set, asks the NodeSelector to
pick one, sleeps a simulated-latency interval, and runs Forward under
that node's permit (registry.Registry.WithPermit — the same semaphore
discipline the Aggregator's Backend Pool uses). Server then relays the
upstream response back to the original client.

# Scaling

Publisher samples the queue's depth on an interval and, when it crosses
the high or low watermark, publishes a ScaleEvent to the lb/scale/request
MQTT topic for the Host Controller to act on. A debounce against the last
emitted action keeps a queue oscillating around a threshold from spamming
the bus.
*/
package lb
