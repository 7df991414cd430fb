// Package cli implements the cluster-agent command-line interface.
//
// # Commands
//
// onboard - Synthesize and store a kubeconfig for a cluster:
//
//	cluster-agent onboard --cluster c1 --kube-context c1-context \
//	  --server-url https://10.0.0.1:6443 --token TOKEN --secure-tls --ca-data BASE64
//
// delete - Remove a stored kubeconfig (idempotent):
//
//	cluster-agent delete --cluster c1
//
// namespaces - List namespaces from the target cluster:
//
//	cluster-agent namespaces [--details] [--server-url URL --token TOKEN]
//
// register - Introspect the cluster and register it with the backend:
//
//	cluster-agent register [--provider eks] [--tag team=infra]
//
// serve - Run the HTTP event server:
//
//	cluster-agent serve [--port 8080]
//
// Commands build an event payload and route it through the same dispatcher
// the event server uses, so CLI and server invocations behave identically.
//
// # Environment Variables
//
//	AGENT_ID         Agent identity sent to the backend
//	API_KEY          Backend API key
//	BACKEND_URL      Backend registration endpoint
//	CLUSTER_NAME     Logical cluster name override
//	SKIP_TLS_VERIFY  Skip certificate verification for the backend only
//	KUBECONFIG_DIR   Directory for synthesized kubeconfig files
//	LOG_LEVEL        Logging verbosity (debug, info, warn, error)
package cli
