package kv

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/cache"
	"k8s.io/client-go/tools/clientcmd"
)

// KubeConfigMapStore keeps each namespace in a ConfigMap of the same name,
// mirrored in memory by an informer.
type KubeConfigMapStore struct {
	logger        *zap.Logger
	cli           kubernetes.Interface
	lock          *sync.RWMutex
	values        map[string]map[string]string
	kubeNamespace string
}

func NewKubeConfigMapStore(logger *zap.Logger, kubeNamespace string) (*KubeConfigMapStore, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, nil)
		config, err = kubeConfig.ClientConfig()
		if err != nil {
			return nil, err
		}
	}

	cli, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	return newKubeConfigMapStore(logger, cli, kubeNamespace), nil
}

func newKubeConfigMapStore(logger *zap.Logger, cli kubernetes.Interface, kubeNamespace string) *KubeConfigMapStore {
	return &KubeConfigMapStore{
		logger:        logger.Named("kube-configmap"),
		cli:           cli,
		lock:          new(sync.RWMutex),
		values:        make(map[string]map[string]string),
		kubeNamespace: kubeNamespace,
	}
}

func (s *KubeConfigMapStore) loadConfig(cm *v1.ConfigMap) {
	s.lock.Lock()
	defer s.lock.Unlock()

	values := map[string]string{}
	for k, v := range cm.Data {
		values[k] = v
	}
	s.values[cm.Name] = values

	s.logger.Debug("config loaded", zap.String("namespace", cm.Name), zap.Int("len", len(values)))
}

func (s *KubeConfigMapStore) ensure(ctx context.Context, ns string) error {
	cms := s.cli.CoreV1().ConfigMaps(s.kubeNamespace)
	cm, err := cms.Create(ctx, &v1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: ns},
		Data:       map[string]string{},
	}, metav1.CreateOptions{})
	if errors.IsAlreadyExists(err) {
		cm, err = cms.Get(ctx, ns, metav1.GetOptions{})
	}
	if err != nil {
		return fmt.Errorf("cannot setup config %s: %w", ns, err)
	}

	s.loadConfig(cm)
	return nil
}

func (s *KubeConfigMapStore) Start(ctx context.Context, g *errgroup.Group) error {
	for _, ns := range registeredNamespaces() {
		if err := s.ensure(ctx, ns); err != nil {
			return err
		}
	}

	watchlist := cache.NewListWatchFromClient(
		s.cli.CoreV1().RESTClient(),
		string(v1.ResourceConfigMaps),
		s.kubeNamespace,
		fields.Everything(),
	)
	_, controller := cache.NewInformer(
		watchlist,
		&v1.ConfigMap{},
		0,
		cache.ResourceEventHandlerFuncs{
			AddFunc: func(obj interface{}) {
				cm := obj.(*v1.ConfigMap)
				if isRegistered(cm.Name) {
					s.loadConfig(cm)
				}
			},
			UpdateFunc: func(oldObj, newObj interface{}) {
				cm := newObj.(*v1.ConfigMap)
				if isRegistered(cm.Name) {
					s.loadConfig(cm)
				}
			},
			DeleteFunc: nil,
		},
	)

	g.Go(func() error {
		controller.Run(ctx.Done())
		return nil
	})

	return nil
}

func (s *KubeConfigMapStore) Get(ctx context.Context, ns Namespace, key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.values[string(ns)][escapeKey(key)], nil
}

func (s *KubeConfigMapStore) patch(ctx context.Context, ns Namespace, key string, value *string) error {
	cm, err := s.cli.CoreV1().ConfigMaps(s.kubeNamespace).Patch(
		ctx,
		string(ns),
		types.StrategicMergePatchType,
		makePatch(key, value),
		metav1.PatchOptions{})
	if err != nil {
		return err
	}
	s.loadConfig(cm)
	return nil
}

func (s *KubeConfigMapStore) Set(ctx context.Context, ns Namespace, key string, value string) error {
	return s.patch(ctx, ns, key, &value)
}

func (s *KubeConfigMapStore) Delete(ctx context.Context, ns Namespace, key string) error {
	return s.patch(ctx, ns, key, nil)
}

func (s *KubeConfigMapStore) Keys(ctx context.Context, ns Namespace) ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	keys := make([]string, 0, len(s.values[string(ns)]))
	for k := range s.values[string(ns)] {
		keys = append(keys, unescapeKey(k))
	}
	sort.Strings(keys)
	return keys, nil
}

var (
	escaper   = regexp.MustCompile(`[^a-zA-Z0-9-_]+`)
	unescaper = regexp.MustCompile(`\.([a-zA-Z0-9-_]*)\.`)
)

func escapeKey(key string) string {
	return escaper.ReplaceAllStringFunc(key, func(c string) string {
		return "." + base64.RawURLEncoding.EncodeToString([]byte(c)) + "."
	})
}

func unescapeKey(key string) string {
	return unescaper.ReplaceAllStringFunc(key, func(c string) string {
		b, err := base64.RawURLEncoding.DecodeString(c[1 : len(c)-1])
		if err != nil {
			return c
		}
		return string(b)
	})
}

// makePatch builds a strategic merge patch; a nil value removes the key.
func makePatch(key string, value *string) []byte {
	type patch struct {
		Data map[string]*string `json:"data"`
	}
	json, err := json.Marshal(patch{Data: map[string]*string{
		escapeKey(key): value,
	}})
	if err != nil {
		panic(err)
	}
	return json
}
