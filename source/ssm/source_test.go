package ssm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/agriguard/kasane/source"
)

type fakeClient struct {
	params map[string]string
	err    error
	inputs []*ssm.GetParameterInput
}

func (f *fakeClient) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.params[aws.ToString(in.Name)]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("not found")}
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Name: in.Name, Value: aws.String(v), Version: 3},
	}, nil
}

func TestLookup(t *testing.T) {
	client := &fakeClient{params: map[string]string{
		"/agri-guard/flutter.mapsApiKey": "AIza-SSM-000",
	}}
	s := New("ssm", "/agri-guard/", WithClient(client))

	v, ok, err := s.Lookup(context.Background(), "flutter.mapsApiKey")
	if err != nil || !ok || v != "AIza-SSM-000" {
		t.Fatalf("Lookup() = %q, %v, %v", v, ok, err)
	}
	if got := client.inputs[0]; !aws.ToBool(got.WithDecryption) {
		t.Fatal("WithDecryption = false, want true by default")
	}

	v, ok, err = s.Lookup(context.Background(), "missing")
	if err != nil || ok || v != "" {
		t.Fatalf("Lookup(missing) = %q, %v, %v; want absent", v, ok, err)
	}
}

func TestLookup_NameFuncAndDecryption(t *testing.T) {
	client := &fakeClient{params: map[string]string{"/app/MAPS_API_KEY": "x"}}
	s := New("ssm", "/app/",
		WithClient(client),
		WithDecryption(false),
		WithNameFunc(func(string) string { return "MAPS_API_KEY" }),
	)

	if got := s.ParameterName("flutter.mapsApiKey"); got != "/app/MAPS_API_KEY" {
		t.Fatalf("ParameterName() = %q", got)
	}
	if _, ok, err := s.Lookup(context.Background(), "flutter.mapsApiKey"); !ok || err != nil {
		t.Fatalf("Lookup() ok = %v, err = %v", ok, err)
	}
	if aws.ToBool(client.inputs[0].WithDecryption) {
		t.Fatal("WithDecryption = true, want false")
	}
}

func TestLookup_AccessError(t *testing.T) {
	throttled := errors.New("ThrottlingException")
	s := New("ssm", "/agri-guard/", WithClient(&fakeClient{err: throttled}))

	_, ok, err := s.Lookup(context.Background(), "flutter.mapsApiKey")
	if ok {
		t.Fatal("ok = true, want false")
	}
	if !source.IsAccessError(err) || !errors.Is(err, throttled) {
		t.Fatalf("err = %v, want AccessError wrapping %v", err, throttled)
	}
}

func TestLookup_ConfigLoadFails(t *testing.T) {
	orig := loadDefaultConfig
	t.Cleanup(func() { loadDefaultConfig = orig })

	noCreds := errors.New("no credentials")
	calls := 0
	loadDefaultConfig = func(context.Context) (aws.Config, error) {
		calls++
		return aws.Config{}, noCreds
	}

	s := New("ssm", "/agri-guard/")
	for i := 0; i < 2; i++ {
		_, _, err := s.Lookup(context.Background(), "k")
		if !source.IsAccessError(err) || !errors.Is(err, noCreds) {
			t.Fatalf("err = %v, want AccessError wrapping %v", err, noCreds)
		}
	}
	if calls != 1 {
		t.Fatalf("config loaded %d times, want 1", calls)
	}
}

func TestLookup_CancelledContext(t *testing.T) {
	client := &fakeClient{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := New("ssm", "/", WithClient(client)).Lookup(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(client.inputs) != 0 {
		t.Fatal("client called after cancellation")
	}
}

func TestDescribe(t *testing.T) {
	d := source.Describe(New("ssm", "/agri-guard/"))
	if d.Source != source.TypeSSM || d.Path != "/agri-guard/" {
		t.Fatalf("Describe() = %+v", d)
	}
}
