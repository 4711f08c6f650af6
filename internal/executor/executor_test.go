package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang-jobrunner/config"
	"golang-jobrunner/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestCommand_Line(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{name: "executable only", cmd: Command{Executable: "backup"}, want: "backup"},
		{name: "with params", cmd: Command{Executable: "backup", Params: "--target /srv"}, want: "backup --target /srv"},
		{name: "trims", cmd: Command{Executable: "backup", Params: " "}, want: "backup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Line())
		})
	}
}

func TestCommand_EnvListSorted(t *testing.T) {
	cmd := Command{Env: map[string]string{"B": "2", "A": "1"}}
	assert.Equal(t, []string{"A=1", "B=2"}, cmd.EnvList())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(FakeName, func() Executor { return NewFake(0, "") })

	assert.True(t, r.Has(FakeName))
	assert.Equal(t, []string{FakeName}, r.Names())

	exec, err := r.Get(FakeName)
	require.NoError(t, err)
	assert.Equal(t, FakeName, exec.Name())

	_, err = r.Get("Missing")
	assert.ErrorIs(t, err, ErrUnknownExecutor)
}

func TestNative_Launch(t *testing.T) {
	tests := []struct {
		name       string
		cmd        Command
		wantCode   int
		wantErr    error
		wantStdout string
	}{
		{
			name:       "success with env",
			cmd:        Command{Executable: "echo", Params: `"hello $GREETING"`, Env: map[string]string{"GREETING": "world"}},
			wantCode:   0,
			wantStdout: "hello world\n",
		},
		{
			name:     "non zero exit",
			cmd:      Command{Executable: "sh", Params: `-c 'exit 3'`},
			wantCode: 3,
		},
		{
			name:     "missing executable",
			cmd:      Command{Executable: "definitely-not-installed-binary"},
			wantCode: ExitCodeNotFound,
			wantErr:  ErrExecutableNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNative(config.Native{Shell: "/bin/sh", Timeout: 10 * time.Second}, "")

			code, err := n.Launch(context.Background(), tt.cmd)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantCode, n.ExitCode())
			assert.Equal(t, tt.cmd.Line(), n.Commandline())
			if tt.wantStdout != "" {
				assert.Equal(t, tt.wantStdout, n.Output())
			}
		})
	}
}

func TestNative_Timeout(t *testing.T) {
	n := NewNative(config.Native{Timeout: 50 * time.Millisecond}, "")

	code, err := n.Launch(context.Background(), Command{Executable: "sleep", Params: "5"})
	assert.Error(t, err)
	assert.Equal(t, ExitCodeLaunchError, code)
}

func TestNative_UsableForApp(t *testing.T) {
	n := NewNative(config.Native{}, "")
	assert.True(t, n.UsableForApp(&model.Application{Executable: "/usr/bin/true"}))
	assert.False(t, n.UsableForApp(&model.Application{}))
	assert.False(t, n.UsableForApp(nil))
}

func TestStoreLogs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	n := NewNative(config.Native{}, dir)

	_, err := n.Launch(context.Background(), Command{JobUUID: "abc", Executable: "echo", Params: "out"})
	require.NoError(t, err)
	require.NoError(t, n.StoreLogs(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "abc.stdout.log"))
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(data))
	assert.FileExists(t, filepath.Join(dir, "abc.stderr.log"))
}

func TestFake(t *testing.T) {
	f := NewFake(2, "done").WithStderr("warn")

	code, err := f.Launch(context.Background(), Command{Executable: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, code)
	assert.Equal(t, "done", f.Output())
	assert.Equal(t, "warn", f.ErrorOutput())
	assert.Len(t, f.Launched(), 1)

	boom := errors.New("boom")
	code, err = NewFake(0, "").WithError(boom).Launch(context.Background(), Command{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ExitCodeLaunchError, code)
}

func TestDocker_Unavailable(t *testing.T) {
	d := NewDocker(nil, config.Docker{DefaultImage: "alpine:3"}, "")

	assert.True(t, d.UsableForApp(&model.Application{}))
	code, err := d.Launch(context.Background(), Command{Executable: "true"})
	assert.ErrorIs(t, err, ErrBackendNotAvailable)
	assert.Equal(t, ExitCodeLaunchError, code)
}

func TestCloudRun_UsableForApp(t *testing.T) {
	c := NewCloudRun(config.CloudRun{ProjectID: "p", Region: "europe-west1"}, "", "")
	assert.True(t, c.UsableForApp(&model.Application{OCIImage: "gcr.io/p/app"}))
	assert.False(t, c.UsableForApp(&model.Application{}))

	job := c.buildJob("gcr.io/p/app", Command{Executable: "run", Params: "--all", Env: map[string]string{"A": "1"}})
	container := job.Template.Template.Containers[0]
	assert.Equal(t, []string{"/bin/sh", "-c", "run --all"}, container.Command)
	assert.Equal(t, "A", container.Env[0].Name)
}

func newTestKubernetes(t *testing.T, pod *corev1.Pod) (*Kubernetes, *fake.Clientset) {
	t.Helper()
	clientset := fake.NewClientset(pod)
	k, err := NewKubernetes(clientset, config.Kubernetes{Namespace: "jobs", Timeout: 5 * time.Second}, "alpine:3", "")
	require.NoError(t, err)
	k.pollInterval = 10 * time.Millisecond
	return k, clientset
}

func completedPod(jobName string, phase corev1.PodPhase, exitCode int32) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName + "-pod",
			Namespace: "jobs",
			Labels:    map[string]string{"job-name": jobName},
		},
		Status: corev1.PodStatus{
			Phase: phase,
			ContainerStatuses: []corev1.ContainerStatus{
				{
					Name: containerName,
					State: corev1.ContainerState{
						Terminated: &corev1.ContainerStateTerminated{ExitCode: exitCode},
					},
				},
			},
		},
	}
}

func TestKubernetes_Launch(t *testing.T) {
	tests := []struct {
		name     string
		phase    corev1.PodPhase
		exitCode int32
		want     int
	}{
		{name: "succeeded", phase: corev1.PodSucceeded, want: 0},
		{name: "failed", phase: corev1.PodFailed, exitCode: 4, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Command{JobUUID: "1F2E", Executable: "report", Params: "--daily", Env: map[string]string{"TOKEN": "t"}}
			k, clientset := newTestKubernetes(t, completedPod(JobName(cmd), tt.phase, tt.exitCode))

			code, err := k.Launch(context.Background(), cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
			assert.Equal(t, "fake logs", k.Output())

			jobs, err := clientset.BatchV1().Jobs("jobs").List(context.Background(), metav1.ListOptions{})
			require.NoError(t, err)
			assert.Empty(t, jobs.Items)
		})
	}
}

func TestKubernetes_BuildJob(t *testing.T) {
	k, err := NewKubernetes(nil, config.Kubernetes{ServiceAccount: "runner"}, "", "")
	require.NoError(t, err)
	cmd := Command{JobUUID: "abc", Executable: "sync", Env: map[string]string{"B": "2", "A": "1"}}

	job := k.buildJob(JobName(cmd), "busybox", cmd)

	assert.Equal(t, "jobrunner-abc", job.Name)
	assert.Equal(t, "default", job.Namespace)
	assert.Equal(t, "runner", job.Spec.Template.Spec.ServiceAccountName)
	c := job.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "busybox", c.Image)
	assert.Equal(t, []string{"/bin/sh", "-c", "sync"}, c.Command)
	assert.Equal(t, []corev1.EnvVar{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}}, c.Env)
	assert.Equal(t, int32(0), *job.Spec.BackoffLimit)
	assert.Equal(t, "500m", c.Resources.Limits.Cpu().String())
	assert.Equal(t, "256Mi", c.Resources.Limits.Memory().String())

	fresh := k.Fresh()
	assert.Equal(t, k.limits, fresh.limits)
	assert.Empty(t, fresh.Output())
}

func TestNewKubernetes_Limits(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Kubernetes
		wantErr string
	}{
		{name: "defaults", cfg: config.Kubernetes{}},
		{name: "configured", cfg: config.Kubernetes{DefaultCPULimit: "2", DefaultMemoryLimit: "1Gi"}},
		{name: "malformed cpu", cfg: config.Kubernetes{DefaultCPULimit: "two cores"}, wantErr: "cpu limit"},
		{name: "malformed memory", cfg: config.Kubernetes{DefaultMemoryLimit: "lots"}, wantErr: "memory limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var k *Kubernetes
			var err error
			require.NotPanics(t, func() {
				k, err = NewKubernetes(nil, tt.cfg, "alpine:3", "")
			})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, k)
				return
			}
			require.NoError(t, err)
			require.NotPanics(t, func() {
				k.buildJob("jobrunner-x", "alpine:3", Command{Executable: "true"})
			})
		})
	}
}
