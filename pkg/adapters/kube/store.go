// Package kube stores the checkpoint document in a Kubernetes ConfigMap.
package kube

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// Type is the checkpointing type tag of this store.
const Type = "kubeconfig"

const (
	DefaultName      = "plumber-checkpoint"
	DefaultNamespace = "default"
)

// Config names the ConfigMap and the data key holding the document.
type Config struct {
	Name        string `mapstructure:"name"`
	Namespace   string `mapstructure:"namespace"`
	Placeholder string `mapstructure:"placeholder"`
	Kubeconfig  string `mapstructure:"kubeconfig"`
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Placeholder == "" {
		c.Placeholder = domain.DefaultCheckpointFile
	}
}

// Store implements ports.CheckpointStore on a ConfigMap.
type Store struct {
	client kubernetes.Interface
	cfg    Config
}

var _ ports.CheckpointStore = (*Store)(nil)

// Open connects to the cluster. Inside a pod (KUBERNETES_SERVICE_HOST set)
// the service account is used; otherwise the kubeconfig named by cfg, or
// the default loading rules.
func Open(cfg Config) (*Store, error) {
	restCfg, err := restConfig(cfg.Kubeconfig)
	if err != nil {
		return nil, err
	}
	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("kubernetes client: %w", err)
	}
	return New(client, cfg), nil
}

func restConfig(kubeconfig string) (*rest.Config, error) {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" && kubeconfig == "" {
		c, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("in-cluster config: %w", err)
		}
		return c, nil
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	c, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("kubeconfig: %w", err)
	}
	return c, nil
}

// New wraps an existing clientset.
func New(client kubernetes.Interface, cfg Config) *Store {
	cfg.setDefaults()
	return &Store{client: client, cfg: cfg}
}

// Get reads the ConfigMap. A missing ConfigMap or data key is an empty
// document.
func (s *Store) Get(ctx context.Context) (domain.Document, error) {
	cm, err := s.client.CoreV1().ConfigMaps(s.cfg.Namespace).Get(ctx, s.cfg.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return domain.Document{}, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: fmt.Errorf("could not read data: %w", err)}
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(cm.Data[s.cfg.Placeholder]), &raw); err != nil {
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: fmt.Errorf("failed to unmarshal checkpoint: %w", err)}
	}
	doc, err := domain.DocumentFromMap(raw)
	if err != nil {
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: err}
	}
	return doc, nil
}

// Save creates the ConfigMap or replaces its data key. The run summary is
// kept as an annotation.
func (s *Store) Save(ctx context.Context, doc domain.Document, info string) error {
	data, err := yaml.Marshal(doc.ToMap())
	if err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: fmt.Errorf("failed to marshal checkpoint: %w", err)}
	}

	configMaps := s.client.CoreV1().ConfigMaps(s.cfg.Namespace)
	existing, err := configMaps.Get(ctx, s.cfg.Name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		cm := &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: s.cfg.Name, Namespace: s.cfg.Namespace},
			Data:       map[string]string{s.cfg.Placeholder: string(data)},
		}
		annotate(cm, info)
		_, err = configMaps.Create(ctx, cm, metav1.CreateOptions{})
	case err != nil:
		return &domain.StoreError{Store: Type, Op: "save", Err: fmt.Errorf("could not read data: %w", err)}
	default:
		cm := existing.DeepCopy()
		if cm.Data == nil {
			cm.Data = map[string]string{}
		}
		cm.Data[s.cfg.Placeholder] = string(data)
		annotate(cm, info)
		_, err = configMaps.Update(ctx, cm, metav1.UpdateOptions{})
	}
	if err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: fmt.Errorf("could not write data: %w", err)}
	}
	return nil
}

// AnnotationSummary holds the summary of the run that wrote the ConfigMap.
const AnnotationSummary = "plumber.io/summary"

func annotate(cm *corev1.ConfigMap, info string) {
	if info == "" {
		return
	}
	if cm.Annotations == nil {
		cm.Annotations = map[string]string{}
	}
	cm.Annotations[AnnotationSummary] = info
}
