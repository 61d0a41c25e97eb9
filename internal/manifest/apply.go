package manifest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	yamlserializer "k8s.io/apimachinery/pkg/runtime/serializer/yaml"
	yamlutil "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"

	"github.com/giantswarm/kubelab/internal/logging"
)

const (
	mapperRefreshAttempts = 5
	mapperRefreshInterval = 100 * time.Millisecond
)

// Applier creates or updates Kubernetes objects from YAML manifests using
// a dynamic client, so it can handle any kind the cluster serves,
// including custom resources.
type Applier struct {
	dyn    dynamic.Interface
	mapper *discoveryMapper
	log    *slog.Logger
}

// NewApplier builds an Applier for the cluster described by restCfg.
// A nil logger falls back to the package default.
func NewApplier(restCfg *rest.Config, logger *slog.Logger) (*Applier, error) {
	if restCfg == nil {
		return nil, fmt.Errorf("rest config must not be nil")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	dyn, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("creating dynamic client: %w", err)
	}
	disco, err := discovery.NewDiscoveryClientForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("creating discovery client: %w", err)
	}

	return &Applier{
		dyn:    dyn,
		mapper: &discoveryMapper{disco: disco},
		log:    logger,
	}, nil
}

// ApplyDir applies every YAML file under dir in sorted path order and
// returns the number of documents applied.
func (a *Applier) ApplyDir(ctx context.Context, dir string) (int, error) {
	paths, err := WalkYAMLFiles(dir)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, path := range paths {
		n, err := a.ApplyFile(ctx, path)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ApplyFile applies all documents of a single YAML manifest file and
// returns the number of documents applied. Empty documents are skipped.
func (a *Applier) ApplyFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading manifest %q: %w", path, err)
	}

	reader := yamlutil.NewYAMLReader(bufio.NewReader(bytes.NewReader(data)))
	applied := 0
	for {
		doc, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return applied, fmt.Errorf("reading document from %q: %w", path, err)
		}
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}
		if err := a.applyDocument(ctx, doc); err != nil {
			return applied, fmt.Errorf("applying document from %q: %w", path, err)
		}
		applied++
	}

	a.log.Debug("applied manifest file", "path", path, "documents", applied)
	return applied, nil
}

func (a *Applier) applyDocument(ctx context.Context, doc []byte) error {
	obj := &unstructured.Unstructured{}
	_, gvk, err := yamlserializer.NewDecodingSerializer(unstructured.UnstructuredJSONScheme).Decode(doc, nil, obj)
	if err != nil {
		if isMissingKindError(err) {
			// Documents with comments only decode to nothing.
			return nil
		}
		return fmt.Errorf("decoding document: %w", err)
	}

	mapping, err := a.mapping(ctx, gvk)
	if err != nil {
		return err
	}

	var ri dynamic.ResourceInterface
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		ns := obj.GetNamespace()
		if ns == "" {
			ns = metav1.NamespaceDefault
		}
		ri = a.dyn.Resource(mapping.Resource).Namespace(ns)
	} else {
		ri = a.dyn.Resource(mapping.Resource)
	}

	_, err = ri.Create(ctx, obj, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		return a.update(ctx, ri, obj)
	}
	if err != nil {
		return fmt.Errorf("creating %s %q: %w", gvk.Kind, obj.GetName(), err)
	}

	a.log.Debug("created object", "kind", gvk.Kind, "name", obj.GetName(), "namespace", obj.GetNamespace())
	return nil
}

// update replaces an existing object, carrying over the live
// resourceVersion so the API server accepts the write.
func (a *Applier) update(ctx context.Context, ri dynamic.ResourceInterface, obj *unstructured.Unstructured) error {
	current, err := ri.Get(ctx, obj.GetName(), metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("getting existing %s %q: %w", obj.GetKind(), obj.GetName(), err)
	}
	obj.SetResourceVersion(current.GetResourceVersion())
	if _, err := ri.Update(ctx, obj, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("updating %s %q: %w", obj.GetKind(), obj.GetName(), err)
	}

	a.log.Debug("updated object", "kind", obj.GetKind(), "name", obj.GetName(), "namespace", obj.GetNamespace())
	return nil
}

// mapping resolves the REST mapping for gvk. On a NoKindMatch error it
// refreshes discovery and retries, since the kind may belong to a CRD that
// was applied earlier in the same batch and has not landed in the cached
// mapper yet.
func (a *Applier) mapping(ctx context.Context, gvk *schema.GroupVersionKind) (*meta.RESTMapping, error) {
	var lastErr error
	for attempt := 0; attempt < mapperRefreshAttempts; attempt++ {
		if attempt > 0 {
			a.mapper.refresh()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(mapperRefreshInterval):
			}
		}

		m, err := a.mapper.get()
		if err != nil {
			lastErr = err
			continue
		}
		mapping, err := m.RESTMapping(gvk.GroupKind(), gvk.Version)
		if err == nil {
			return mapping, nil
		}
		if !meta.IsNoMatchError(err) {
			return nil, fmt.Errorf("resolving mapping for %s: %w", gvk.String(), err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("resolving mapping for %s: %w", gvk.String(), lastErr)
}

func isMissingKindError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Object 'Kind' is missing")
}

// discoveryMapper lazily builds a RESTMapper from API discovery and
// rebuilds it on demand when new kinds appear.
type discoveryMapper struct {
	disco discovery.DiscoveryInterface

	mu     sync.Mutex
	mapper meta.RESTMapper
}

func (d *discoveryMapper) get() (meta.RESTMapper, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mapper != nil {
		return d.mapper, nil
	}
	groupResources, err := restmapper.GetAPIGroupResources(d.disco)
	if err != nil {
		return nil, fmt.Errorf("discovering API group resources: %w", err)
	}
	d.mapper = restmapper.NewDiscoveryRESTMapper(groupResources)
	return d.mapper, nil
}

func (d *discoveryMapper) refresh() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mapper = nil
}
