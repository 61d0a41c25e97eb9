// Package netutil provides local port allocation for kubelab.
//
// PortRegistry asks the kernel for free ports and tracks the ones handed
// out across the process, closing the TOCTOU window where two concurrent
// port-forwards would otherwise receive the same port (the first caller's
// listener is closed before the second caller binds).
package netutil
