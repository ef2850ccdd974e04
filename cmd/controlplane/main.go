// Command controlplane runs the Vale/Kubera Gateway API control plane: it
// watches GatewayClasses, Gateways, HTTPRoutes and this project's parameter
// and extension-filter CRDs, renders per-Gateway configuration documents and
// owned ConfigMap/Deployment/Service objects, and serves them to the data
// plane over the IPC HTTP API.
package main

import "github.com/whitefamily/kubera-controlplane/cmd/controlplane/app"

func main() {
	app.Execute()
}
