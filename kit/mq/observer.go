package mq

import "github.com/pkg/errors"

type observer struct {
	key             string
	notify          Notify
	notifyBatch     NotifyBatch
	unSubscribeHook func() error
	errorHandler    func(error)
}

var _ Observer = (*observer)(nil)

func CreateObserver(key string, notify Notify, options ...ObserverOption) Observer {
	o := &observer{
		key:    key,
		notify: notify,
	}
	applyObserverOptions(o, options)
	return o
}

func CreateObserverBatch(key string, notifyBatch NotifyBatch, options ...ObserverOption) Observer {
	o := &observer{
		key:         key,
		notifyBatch: notifyBatch,
	}
	applyObserverOptions(o, options)
	return o
}

func applyObserverOptions(o *observer, options []ObserverOption) {
	var observerOptionConfig ObserverOptionConfig
	for _, option := range options {
		option(&observerOptionConfig)
	}
	o.unSubscribeHook = observerOptionConfig.UnSubscribeHook
	o.errorHandler = observerOptionConfig.ErrorHandler
}

func (o *observer) GetKey() string {
	return o.key
}

func (o *observer) IsBatch() bool {
	return o.notifyBatch != nil
}

func (o *observer) Notify(message []byte) error {
	if o.notify == nil {
		return o.NotifyBatch([][]byte{message})
	}
	if err := o.notify(message); err != nil {
		return errors.Wrap(err, "notify failed")
	}
	return nil
}

func (o *observer) NotifyBatch(messages [][]byte) error {
	if o.notifyBatch == nil {
		for _, message := range messages {
			if err := o.Notify(message); err != nil {
				return err
			}
		}
		return nil
	}
	if err := o.notifyBatch(messages); err != nil {
		return errors.Wrap(err, "notify batch failed")
	}
	return nil
}

func (o *observer) UnSubscribeHook() {
	if o.unSubscribeHook == nil {
		return
	}
	if err := o.unSubscribeHook(); err != nil {
		o.ErrorHandler(err)
	}
}

func (o *observer) ErrorHandler(err error) {
	if o.errorHandler != nil {
		o.errorHandler(err)
	}
}

// Dispatch hands a collected batch to every observer. A failing observer does not stop the others.
func Dispatch(observers []Observer, messages [][]byte) {
	for _, o := range observers {
		if o.IsBatch() {
			if err := o.NotifyBatch(messages); err != nil {
				o.ErrorHandler(err)
			}
			continue
		}
		for _, message := range messages {
			if err := o.Notify(message); err != nil {
				o.ErrorHandler(err)
			}
		}
	}
}
