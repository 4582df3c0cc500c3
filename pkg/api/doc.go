/*
Package api implements the Aggregator's HTTP surface: file upload,
download, delete, the load balancer's audit-log ingestion endpoint, and a
liveness probe, per the object-storage system's external interface.

# Endpoints

	POST   /api/files/upload              X-File-Name, X-File-Size, optional X-File-ID
	GET    /api/files/{fileId}/download    streams application/octet-stream
	DELETE /api/files/{fileId}
	POST   /api/system-logs                form-or-query: event_type, description, severity, service_name, user_id
	GET    /api/health                     {"status":"HEALTHY"}
	GET    /metrics                        Prometheus exposition

The load balancer's own HTTP surface (pkg/lb) speaks the same
upload/download shape to whichever backend endpoint it forwards to — this
package is what answers on the other end.

Every vmerr.Kind returned by the pipeline is mapped to an HTTP status at
this boundary (writeVMErr), so the pipeline itself never has to know it
is being driven over HTTP.
*/
package api
