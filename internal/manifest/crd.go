package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsclient "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/rest"

	"github.com/giantswarm/kubelab/internal/logging"
)

const (
	crdPollInterval   = 100 * time.Millisecond
	longWaitThreshold = 10 * time.Second

	// Establishment polling hammers the CRD list endpoint, so lift the
	// client-side rate limits above their conservative defaults.
	crdClientQPS   = 50
	crdClientBurst = 100
)

// WaitEstablished blocks until every CustomResourceDefinition in the
// cluster reports the Established condition, meaning its resources are
// served and custom resources can be created. It returns immediately when
// the cluster has no CRDs.
func WaitEstablished(ctx context.Context, restCfg *rest.Config, timeout time.Duration, logger *slog.Logger) error {
	if restCfg == nil {
		return fmt.Errorf("rest config must not be nil")
	}
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", timeout)
	}
	if logger == nil {
		logger = logging.Logger()
	}

	cfg := rest.CopyConfig(restCfg)
	cfg.QPS = crdClientQPS
	cfg.Burst = crdClientBurst
	client, err := apiextensionsclient.NewForConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating apiextensions client: %w", err)
	}

	start := time.Now()
	warned := false
	err = wait.PollUntilContextTimeout(ctx, crdPollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		list, err := client.ApiextensionsV1().CustomResourceDefinitions().List(ctx, metav1.ListOptions{})
		if err != nil {
			logger.Debug("listing CRDs failed, retrying", "error", err)
			return false, nil
		}

		pending := 0
		for i := range list.Items {
			if !crdEstablished(&list.Items[i]) {
				pending++
			}
		}
		if pending == 0 {
			return true, nil
		}
		if !warned && time.Since(start) > longWaitThreshold {
			warned = true
			logger.Warn("still waiting for CRDs to become established",
				"pending", pending,
				"elapsed", time.Since(start).Round(time.Second))
		}
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for CRDs to become established: %w", err)
	}

	logger.Debug("all CRDs established", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func crdEstablished(crd *apiextensionsv1.CustomResourceDefinition) bool {
	for _, cond := range crd.Status.Conditions {
		if cond.Type == apiextensionsv1.Established {
			return cond.Status == apiextensionsv1.ConditionTrue
		}
	}
	return false
}
