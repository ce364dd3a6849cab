package ioc_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlackNotifier declares its own registration.
type SlackNotifier struct {
	Channel string
}

func (*SlackNotifier) Notify() string { return "slack" }

func (*SlackNotifier) Export() ioc.Export {
	return ioc.Export{
		ServiceTypes: []reflect.Type{notifierType, reflect.TypeFor[*SlackNotifier]()},
		Reuse:        ioc.Singleton,
	}
}

// WebhookNotifier replaces every existing Notifier under its key.
type WebhookNotifier struct{}

func (*WebhookNotifier) Notify() string { return "webhook" }

func (*WebhookNotifier) Export() ioc.Export {
	return ioc.Export{
		Implementation: func() *WebhookNotifier { return &WebhookNotifier{} },
		ServiceTypes:   []reflect.Type{notifierType},
		Reuse:          ioc.Transient,
		Key:            "alerts",
		ClearExisting:  true,
	}
}

type hiddenNotifier interface{ Notify() string }

func TestRegisterDeclared(t *testing.T) {
	t.Run("exporter type", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		ctx := context.Background()
		require.NoError(t, c.RegisterDeclared(reflect.TypeFor[*SlackNotifier]()))

		n := testutil.AssertSameInstance[Notifier](t, ctx, c)
		s := testutil.AssertServiceResolvable[*SlackNotifier](t, ctx, c)
		assert.Same(t, s, n.(*SlackNotifier))
	})

	t.Run("exporter value", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		require.NoError(t, c.RegisterDeclared(&SlackNotifier{}))
		testutil.AssertServiceResolvable[*SlackNotifier](t, context.Background(), c)
	})

	t.Run("records and skipped candidates", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		ctx := context.Background()
		require.NoError(t, c.RegisterDeclared(
			ioc.Export{Implementation: testutil.NewTestDatabase, Reuse: ioc.Singleton},
			&ioc.Export{Implementation: testutil.NewTestLogger, ServiceTypes: []reflect.Type{loggerType}},
			(*ioc.Export)(nil),
			reflect.TypeFor[*Mailer](),
			"not a candidate",
		))

		testutil.AssertSameInstance[*testutil.TestDatabase](t, ctx, c)
		testutil.AssertDistinctInstances[testutil.TestLogger](t, ctx, c)
		testutil.AssertServiceNotFound[*Mailer](t, ctx, c)
	})

	t.Run("clear existing", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		ctx := context.Background()
		require.NoError(t, ioc.Register[Notifier](c, func() Notifier { return &EmailNotifier{} }, ioc.Transient, ioc.Keyed("alerts")))
		require.NoError(t, ioc.Register[Notifier](c, func() Notifier { return &SMSNotifier{} }, ioc.Transient, ioc.Keyed("alerts")))
		require.NoError(t, ioc.Register[Notifier](c, func() Notifier { return &PushNotifier{} }, ioc.Transient))

		require.NoError(t, c.RegisterDeclared(reflect.TypeFor[*WebhookNotifier]()))

		alerts, err := ioc.ResolveAll[Notifier](ctx, c, ioc.Keyed("alerts"))
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, "webhook", alerts[0].Notify())

		n := testutil.AssertServiceResolvable[Notifier](t, ctx, c)
		assert.Equal(t, "push", n.Notify(), "the default contract is untouched")
	})

	t.Run("non-public and except", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		ctx := context.Background()
		hidden := reflect.TypeFor[hiddenNotifier]()
		ctor := func() *PushNotifier { return &PushNotifier{} }

		require.NoError(t, c.RegisterDeclared(ioc.Export{
			Implementation: ctor,
			ServiceTypes:   []reflect.Type{hidden, notifierType, reflect.TypeFor[*PushNotifier]()},
			Except:         []reflect.Type{reflect.TypeFor[*PushNotifier]()},
		}))
		testutil.AssertServiceResolvable[Notifier](t, ctx, c)
		testutil.AssertServiceNotFound[hiddenNotifier](t, ctx, c)
		testutil.AssertServiceNotFound[*PushNotifier](t, ctx, c)

		require.NoError(t, c.RegisterDeclared(ioc.Export{
			Implementation: ctor,
			ServiceTypes:   []reflect.Type{hidden},
			NonPublic:      true,
		}))
		testutil.AssertServiceResolvable[hiddenNotifier](t, ctx, c)
	})

	t.Run("failures name the candidate", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewContainer(t)
		err := c.RegisterDeclared(
			ioc.Export{Implementation: testutil.NewTestDatabase},
			ioc.Export{Implementation: testutil.NewTestDatabase, ServiceTypes: []reflect.Type{notifierType}},
		)

		testutil.AssertRegistrationFails(t, err, nil)
		assert.Contains(t, err.Error(), "candidate 1")
		testutil.AssertServiceResolvable[*testutil.TestDatabase](t, context.Background(), c)
	})
}
