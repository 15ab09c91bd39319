package kube

import (
	"context"
	"strings"
	"testing"
	"time"

	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestJobName(t *testing.T) {
	now := time.Unix(0, 42)
	if got := JobName("sources/My Photo_01.JPG", now); got != "splix-my-photo-01-42" {
		t.Errorf("JobName = %q", got)
	}

	long := JobName("sources/"+strings.Repeat("a", 100)+".png", time.Unix(1700000000, 0))
	if len(long) > 63 {
		t.Errorf("JobName length %d > 63: %q", len(long), long)
	}
	if !strings.HasSuffix(long, "-1700000000000000000") {
		t.Errorf("timestamp suffix lost: %q", long)
	}
}

func TestBuildJob(t *testing.T) {
	job := BuildJob("splix-cat-1", "sources/cat.png", JobConfig{
		Namespace:         "imaging",
		Image:             "ghcr.io/phantominthewire/splix:latest",
		BucketURL:         "http://minio.default.svc:9000/tiles/",
		CredentialsSecret: "minio-creds",
		Rows:              "2,3,1,5",
		Cols:              "4",
	})

	if job.Namespace != "imaging" || *job.Spec.BackoffLimit != 1 {
		t.Errorf("meta: %s backoff %d", job.Namespace, *job.Spec.BackoffLimit)
	}
	pod := job.Spec.Template.Spec
	fetch := strings.Join(pod.InitContainers[0].Command, " ")
	if fetch != "curl -sf --create-dirs -o /work/in/cat.png http://minio.default.svc:9000/tiles/sources/cat.png" {
		t.Errorf("fetch command %q", fetch)
	}

	c := pod.Containers[0]
	want := "--upload -d /work/out -r 2,3,1,5 -c 4 /work/in/cat.png"
	if got := strings.Join(c.Args, " "); got != want {
		t.Errorf("args %q, want %q", got, want)
	}
	if c.EnvFrom[0].SecretRef.Name != "minio-creds" {
		t.Errorf("envFrom %+v", c.EnvFrom)
	}
	if c.Env[0].Value != "tiles/sources/cat" {
		t.Errorf("prefix env %+v", c.Env)
	}
}

func TestBuildJobKeepsKeyOutOfShell(t *testing.T) {
	key := "sources/holiday/my photo;touch PWNED.png"
	job := BuildJob("splix-x-1", key, JobConfig{Image: "splix", BucketURL: "http://minio:9000/b"})

	cmd := job.Spec.Template.Spec.InitContainers[0].Command
	if cmd[0] != "curl" {
		t.Fatalf("init command runs %q, want curl", cmd[0])
	}
	for _, arg := range cmd {
		if arg == "sh" || arg == "-c" {
			t.Errorf("init command goes through a shell: %q", cmd)
		}
	}
	wantURL := "http://minio:9000/b/sources/holiday/my%20photo%3Btouch%20PWNED.png"
	if got := cmd[len(cmd)-1]; got != wantURL {
		t.Errorf("url %q, want %q", got, wantURL)
	}
	if got := cmd[len(cmd)-2]; got != "/work/in/my photo;touch PWNED.png" {
		t.Errorf("output path %q", got)
	}

	args := job.Spec.Template.Spec.Containers[0].Args
	if got := args[len(args)-1]; got != "/work/in/my photo;touch PWNED.png" {
		t.Errorf("splix input %q", got)
	}
}

func TestDispatch(t *testing.T) {
	client := fake.NewSimpleClientset()
	d := &Dispatcher{
		Client: client,
		Config: JobConfig{Namespace: "default", Image: "splix", BucketURL: "http://minio:9000/b", Rows: "2"},
		Now:    func() time.Time { return time.Unix(0, 7) },
	}

	name, err := d.Dispatch(context.Background(), "sources/dog.jpg")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if name != "splix-dog-7" {
		t.Errorf("name = %q", name)
	}
	job, err := client.BatchV1().Jobs("default").Get(context.Background(), name, meta.GetOptions{})
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Annotations["splix/source"] != "sources/dog.jpg" {
		t.Errorf("annotations %v", job.Annotations)
	}

	if _, err := d.Dispatch(context.Background(), "sources/dog.jpg"); err == nil {
		t.Error("second Dispatch with the same name succeeded")
	}
}
