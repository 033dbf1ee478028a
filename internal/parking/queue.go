package parking

type queueNode struct {
	car  Car
	next *queueNode
}

// WaitingQueue is the unbounded FIFO of cars that arrived while the facility
// was full.
type WaitingQueue struct {
	front *queueNode
	rear  *queueNode
	count int
}

func NewWaitingQueue() *WaitingQueue {
	return &WaitingQueue{}
}

func (q *WaitingQueue) IsEmpty() bool {
	return q.front == nil
}

func (q *WaitingQueue) Len() int {
	return q.count
}

func (q *WaitingQueue) Enqueue(car Car) {
	node := &queueNode{car: car}
	if q.rear == nil {
		q.front = node
	} else {
		q.rear.next = node
	}
	q.rear = node
	q.count++
}

func (q *WaitingQueue) Dequeue() (Car, bool) {
	if q.front == nil {
		return Car{}, false
	}

	node := q.front
	q.front = node.next
	if q.front == nil {
		q.rear = nil
	}
	node.next = nil
	q.count--

	return node.car, true
}

func (q *WaitingQueue) Peek() (Car, bool) {
	if q.front == nil {
		return Car{}, false
	}
	return q.front.car, true
}

// Clear unlinks every node. Safe on an empty queue.
func (q *WaitingQueue) Clear() {
	for q.front != nil {
		next := q.front.next
		q.front.next = nil
		q.front = next
	}
	q.rear = nil
	q.count = 0
}

func (q *WaitingQueue) Contains(plate string) bool {
	for n := q.front; n != nil; n = n.next {
		if n.car.Plate == plate {
			return true
		}
	}
	return false
}

// Cars returns a copy of the waiting cars from front to rear.
func (q *WaitingQueue) Cars() []Car {
	cars := make([]Car, 0, q.count)
	for n := q.front; n != nil; n = n.next {
		cars = append(cars, n.car)
	}
	return cars
}
