// Package kube runs splits as Kubernetes Jobs, one per source image.
package kube

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/retry"
)

const (
	appLabel   = "splix-worker"
	workVolume = "work"
	workDir    = "/work"
)

// JobConfig describes the Jobs created by a Dispatcher.
type JobConfig struct {
	Namespace string `yaml:"namespace"`
	// Image runs the splix binary.
	Image string `yaml:"image"`
	// BucketURL is where the init container fetches sources from.
	BucketURL string `yaml:"bucket_url"`
	// CredentialsSecret holds SPLIX_S3_* variables for tile upload.
	CredentialsSecret string `yaml:"credentials_secret"`
	BackoffLimit      int32  `yaml:"backoff_limit"`

	Rows string `yaml:"-"`
	Cols string `yaml:"-"`
}

func int32Ptr(i int32) *int32 { return &i }

var invalidName = regexp.MustCompile(`[^a-z0-9-]`)

// JobName derives a DNS-1123 Job name from a source key.
func JobName(source string, now time.Time) string {
	base := strings.TrimSuffix(path.Base(source), path.Ext(source))
	sanitized := strings.Trim(invalidName.ReplaceAllString(strings.ToLower(base), "-"), "-")
	suffix := fmt.Sprintf("-%d", now.UnixNano())

	name := "splix-" + sanitized
	if len(name)+len(suffix) > 63 {
		name = strings.TrimRight(name[:63-len(suffix)], "-")
	}
	return name + suffix
}

// escapeKey percent-encodes each segment of an object key for use in a URL.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// BuildJob returns a Job that:
// 1) downloads sourceKey from the bucket
// 2) splits it with splix
// 3) uploads the tiles back to the bucket
func BuildJob(name, sourceKey string, cfg JobConfig) *batchv1.Job {
	input := path.Join(workDir, "in", path.Base(sourceKey))
	args := []string{"--upload", "-d", path.Join(workDir, "out")}
	if cfg.Rows != "" {
		args = append(args, "-r", cfg.Rows)
	}
	if cfg.Cols != "" {
		args = append(args, "-c", cfg.Cols)
	}
	args = append(args, input)

	mounts := []corev1.VolumeMount{{Name: workVolume, MountPath: workDir}}

	processor := corev1.Container{
		Name:         "splix",
		Image:        cfg.Image,
		Args:         args,
		VolumeMounts: mounts,
		Env: []corev1.EnvVar{
			{Name: "SPLIX_S3_PREFIX", Value: path.Join("tiles", strings.TrimSuffix(sourceKey, path.Ext(sourceKey)))},
		},
	}
	if cfg.CredentialsSecret != "" {
		processor.EnvFrom = []corev1.EnvFromSource{{
			SecretRef: &corev1.SecretEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: cfg.CredentialsSecret},
			},
		}}
	}

	backoff := cfg.BackoffLimit
	if backoff <= 0 {
		backoff = 1
	}

	return &batchv1.Job{
		ObjectMeta: meta.ObjectMeta{
			Name:      name,
			Namespace: cfg.Namespace,
			Labels:    map[string]string{"app": appLabel},
			Annotations: map[string]string{
				"splix/source": sourceKey,
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: int32Ptr(backoff),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: meta.ObjectMeta{
					Labels: map[string]string{"job-name": name, "app": appLabel},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyOnFailure,
					InitContainers: []corev1.Container{{
						Name:  "fetch-source",
						Image: "curlimages/curl:7.85.0",
						Command: []string{
							"curl", "-sf", "--create-dirs", "-o", input,
							strings.TrimRight(cfg.BucketURL, "/") + "/" + escapeKey(sourceKey),
						},
						VolumeMounts: mounts,
					}},
					Containers: []corev1.Container{processor},
					Volumes: []corev1.Volume{{
						Name: workVolume,
						VolumeSource: corev1.VolumeSource{
							EmptyDir: &corev1.EmptyDirVolumeSource{},
						},
					}},
				},
			},
		},
	}
}

// Dispatcher creates split Jobs.
type Dispatcher struct {
	Client kubernetes.Interface
	Config JobConfig
	// Now is used for Job names; defaults to time.Now.
	Now func() time.Time
}

// NewDispatcher builds a client from kubeconfig, or from the default
// kubeconfig location when empty.
func NewDispatcher(kubeconfig string, cfg JobConfig) (*Dispatcher, error) {
	if kubeconfig == "" {
		kubeconfig = clientcmd.RecommendedHomeFile
	}
	restCfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("building clientset: %w", err)
	}
	return &Dispatcher{Client: clientset, Config: cfg}, nil
}

// Dispatch creates the Job for one source object and returns its name.
func (d *Dispatcher) Dispatch(ctx context.Context, sourceKey string) (string, error) {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	name := JobName(sourceKey, now())
	job := BuildJob(name, sourceKey, d.Config)

	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		_, err := d.Client.BatchV1().Jobs(d.Config.Namespace).Create(ctx, job, meta.CreateOptions{})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create job %s: %w", name, err)
	}
	return name, nil
}
