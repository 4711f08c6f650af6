package executor

import (
	"context"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/model"
	"strings"
	"time"

	"github.com/google/uuid"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	KubernetesName = "Kubernetes"

	managedByLabel = "app.kubernetes.io/managed-by"
	managedBy      = "jobrunner"
	containerName  = "job"
)

// Kubernetes runs the command line as a batch Job and polls its pod until
// it terminates.
type Kubernetes struct {
	outcome
	clientset    kubernetes.Interface
	cfg          config.Kubernetes
	limits       corev1.ResourceList
	defaultImage string
	pollInterval time.Duration
}

// NewKubernetesClientset prefers in-cluster credentials and falls back to
// the configured kubeconfig.
func NewKubernetesClientset(cfg config.Kubernetes) (kubernetes.Interface, error) {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build kubernetes config: %w", err)
		}
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}
	return clientset, nil
}

// NewKubernetes fails when the configured resource limits do not parse.
func NewKubernetes(clientset kubernetes.Interface, cfg config.Kubernetes, defaultImage, logDir string) (*Kubernetes, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	if cfg.DefaultCPULimit == "" {
		cfg.DefaultCPULimit = "500m"
	}
	if cfg.DefaultMemoryLimit == "" {
		cfg.DefaultMemoryLimit = "256Mi"
	}
	cpu, err := resource.ParseQuantity(cfg.DefaultCPULimit)
	if err != nil {
		return nil, fmt.Errorf("invalid kubernetes cpu limit %q: %w", cfg.DefaultCPULimit, err)
	}
	memory, err := resource.ParseQuantity(cfg.DefaultMemoryLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid kubernetes memory limit %q: %w", cfg.DefaultMemoryLimit, err)
	}
	return &Kubernetes{
		outcome:   outcome{name: KubernetesName, logDir: logDir},
		clientset: clientset,
		cfg:       cfg,
		limits: corev1.ResourceList{
			corev1.ResourceCPU:    cpu,
			corev1.ResourceMemory: memory,
		},
		defaultImage: defaultImage,
		pollInterval: 2 * time.Second,
	}, nil
}

// Fresh returns an executor with the same settings and no launch state.
func (k *Kubernetes) Fresh() *Kubernetes {
	return &Kubernetes{
		outcome:      outcome{name: KubernetesName, logDir: k.logDir},
		clientset:    k.clientset,
		cfg:          k.cfg,
		limits:       k.limits.DeepCopy(),
		defaultImage: k.defaultImage,
		pollInterval: k.pollInterval,
	}
}

func (k *Kubernetes) UsableForApp(app *model.Application) bool {
	return app != nil && (app.OCIImage != "" || k.defaultImage != "")
}

// JobName is the batch Job name used for a launch.
func JobName(cmd Command) string {
	id := cmd.JobUUID
	if id == "" {
		id = uuid.NewString()
	}
	return "jobrunner-" + strings.ToLower(id)
}

func (k *Kubernetes) buildJob(name, img string, cmd Command) *batchv1.Job {
	env := make([]corev1.EnvVar, 0, len(cmd.Env))
	for _, kv := range cmd.EnvList() {
		parts := strings.SplitN(kv, "=", 2)
		env = append(env, corev1.EnvVar{Name: parts[0], Value: parts[1]})
	}

	backoffLimit := int32(0)
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: k.cfg.Namespace,
			Labels:    map[string]string{managedByLabel: managedBy},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoffLimit,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						"job-name":     name,
						managedByLabel: managedBy,
					},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{
						{
							Name:    containerName,
							Image:   img,
							Command: []string{"/bin/sh", "-c", cmd.Line()},
							Env:     env,
							Resources: corev1.ResourceRequirements{
								Limits: k.limits.DeepCopy(),
							},
						},
					},
				},
			},
		},
	}
	if k.cfg.ServiceAccount != "" {
		job.Spec.Template.Spec.ServiceAccountName = k.cfg.ServiceAccount
	}
	return job
}

func (k *Kubernetes) Launch(ctx context.Context, cmd Command) (int, error) {
	k.begin(cmd)

	if k.clientset == nil {
		k.finish(ExitCodeLaunchError, "", ErrBackendNotAvailable.Error())
		return ExitCodeLaunchError, ErrBackendNotAvailable
	}
	img := cmd.Image
	if img == "" {
		img = k.defaultImage
	}
	if img == "" {
		k.finish(ExitCodeLaunchError, "", ErrImageNotConfigured.Error())
		return ExitCodeLaunchError, ErrImageNotConfigured
	}

	if k.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.cfg.Timeout)
		defer cancel()
	}

	name := JobName(cmd)
	jobs := k.clientset.BatchV1().Jobs(k.cfg.Namespace)
	if _, err := jobs.Create(ctx, k.buildJob(name, img, cmd), metav1.CreateOptions{}); err != nil {
		err = fmt.Errorf("failed to create kubernetes job: %w", err)
		k.finish(ExitCodeLaunchError, "", err.Error())
		return ExitCodeLaunchError, err
	}
	defer func() {
		propagation := metav1.DeletePropagationBackground
		_ = jobs.Delete(context.WithoutCancel(ctx), name, metav1.DeleteOptions{PropagationPolicy: &propagation})
	}()

	pod, err := k.waitForCompletion(ctx, name)
	if err != nil {
		k.finish(ExitCodeLaunchError, "", err.Error())
		return ExitCodeLaunchError, err
	}

	code := 0
	if pod.Status.Phase == corev1.PodFailed {
		code = 1
		for _, cs := range pod.Status.ContainerStatuses {
			if cs.Name == containerName && cs.State.Terminated != nil {
				code = int(cs.State.Terminated.ExitCode)
			}
		}
	}

	stdout := k.podLogs(ctx, pod.Name)
	k.finish(code, stdout, "")
	return code, nil
}

func (k *Kubernetes) waitForCompletion(ctx context.Context, jobName string) (*corev1.Pod, error) {
	ticker := time.NewTicker(k.pollInterval)
	defer ticker.Stop()

	pods := k.clientset.CoreV1().Pods(k.cfg.Namespace)
	for {
		list, err := pods.List(ctx, metav1.ListOptions{LabelSelector: "job-name=" + jobName})
		if err != nil {
			return nil, fmt.Errorf("failed to list pods of job %s: %w", jobName, err)
		}
		for i := range list.Items {
			switch list.Items[i].Status.Phase {
			case corev1.PodSucceeded, corev1.PodFailed:
				return &list.Items[i], nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("job %s did not complete: %w", jobName, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (k *Kubernetes) podLogs(ctx context.Context, podName string) string {
	raw, err := k.clientset.CoreV1().Pods(k.cfg.Namespace).
		GetLogs(podName, &corev1.PodLogOptions{Container: containerName}).
		DoRaw(context.WithoutCancel(ctx))
	if err != nil {
		return ""
	}
	return string(raw)
}
