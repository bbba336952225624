/*
Package inventory answers fleet membership questions against the
cloud control plane.

The Inventory core works over two narrow interfaces, SetLister and
InstanceLister, so resolution logic is a pure function of listing
results. AzureLister is the production implementation on the official
Azure SDK (armcompute for scale sets and their VMs, armnetwork for
member private IPs); tests substitute in-memory fakes.

All answers are best-effort, point-in-time views of an eventually
consistent API. Two instances running the same query at the same
moment may legitimately receive different answers; callers own that
trade-off.
*/
package inventory
