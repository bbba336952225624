package inventory

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
)

// Credentials holds the service principal used for control-plane
// calls. Session establishment happens once, in NewAzureLister,
// before the configuration pass runs.
type Credentials struct {
	TenantID       string
	ClientID       string
	ClientSecret   string
	SubscriptionID string
}

// AzureLister implements SetLister and InstanceLister against the
// Azure Resource Manager API.
type AzureLister struct {
	scaleSets *armcompute.VirtualMachineScaleSetsClient
	vms       *armcompute.VirtualMachineScaleSetVMsClient
	nics      *armnetwork.InterfacesClient
}

// NewAzureLister authenticates the service principal and builds the
// ARM clients.
func NewAzureLister(creds Credentials) (*AzureLister, error) {
	cred, err := azidentity.NewClientSecretCredential(creds.TenantID, creds.ClientID, creds.ClientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("authenticating service principal: %w", err)
	}

	scaleSets, err := armcompute.NewVirtualMachineScaleSetsClient(creds.SubscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating scale set client: %w", err)
	}
	vms, err := armcompute.NewVirtualMachineScaleSetVMsClient(creds.SubscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating scale set VM client: %w", err)
	}
	nics, err := armnetwork.NewInterfacesClient(creds.SubscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating network interface client: %w", err)
	}

	return &AzureLister{scaleSets: scaleSets, vms: vms, nics: nics}, nil
}

// ListScaleSets returns the names of every scale set in the resource
// group.
func (a *AzureLister) ListScaleSets(ctx context.Context, resourceGroup string) ([]string, error) {
	var names []string
	pager := a.scaleSets.NewListPager(resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, set := range page.Value {
			if set.Name != nil {
				names = append(names, *set.Name)
			}
		}
	}
	return names, nil
}

// ListInstanceNames returns the VM names of every instance in the
// named scale set. The VM name is what IMDS reports as the compute
// name, so equality against it identifies the owning set.
func (a *AzureLister) ListInstanceNames(ctx context.Context, resourceGroup, scaleSet string) ([]string, error) {
	var names []string
	pager := a.vms.NewListPager(resourceGroup, scaleSet, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, vm := range page.Value {
			if vm.Name != nil {
				names = append(names, *vm.Name)
			}
		}
	}
	return names, nil
}

// ListPrivateIPs returns the private addresses of every NIC IP
// configuration across the scale set, in the control plane's
// enumeration order.
func (a *AzureLister) ListPrivateIPs(ctx context.Context, resourceGroup, scaleSet string) ([]string, error) {
	var ips []string
	pager := a.nics.NewListVirtualMachineScaleSetNetworkInterfacesPager(resourceGroup, scaleSet, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, nic := range page.Value {
			if nic.Properties == nil {
				continue
			}
			for _, cfg := range nic.Properties.IPConfigurations {
				if cfg.Properties != nil && cfg.Properties.PrivateIPAddress != nil {
					ips = append(ips, *cfg.Properties.PrivateIPAddress)
				}
			}
		}
	}
	return ips, nil
}
